package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/ledger"
)

func testEvents(n int) []ledger.Event {
	events := make([]ledger.Event, 0, n)
	for i := 1; i <= n; i++ {
		events = append(events, ledger.Event{
			Seq:        uint64(i),
			Kind:       ledger.ModelSubmitted,
			CampaignID: 1,
			Round:      1,
			Trainer:    trainer1,
			CID:        "bafybeigdyrzt5a",
			At:         time.Now().UTC(),
		})
	}

	return events
}

func TestBadgerLogAppendReplay(t *testing.T) {
	log, err := ledger.NewBadgerLog(t.TempDir())
	require.NoError(t, err)
	defer log.Close()

	events := testEvents(5)
	require.NoError(t, log.Append(context.Background(), events))

	replayed, err := log.Replay(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, replayed, 5)
	for i, e := range replayed {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.Equal(t, ledger.ModelSubmitted, e.Kind)
	}

	tail, err := log.Replay(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(4), tail[0].Seq)
}

func TestBadgerLogLastSeq(t *testing.T) {
	log, err := ledger.NewBadgerLog(t.TempDir())
	require.NoError(t, err)
	defer log.Close()

	last, err := log.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), last)

	require.NoError(t, log.Append(context.Background(), testEvents(3)))

	last, err = log.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last)
}

func TestBadgerLogSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	log, err := ledger.NewBadgerLog(dir)
	require.NoError(t, err)
	cfg := testConfig()
	require.NoError(t, log.Append(context.Background(), []ledger.Event{
		{Seq: 1, Kind: ledger.CampaignCreated, CampaignID: 1, Config: &cfg, At: time.Now().UTC()},
		{Seq: 2, Kind: ledger.NewRoundStarted, CampaignID: 1, Round: 1, Deadline: time.Now().Add(time.Hour).UTC(), At: time.Now().UTC()},
		{Seq: 3, Kind: ledger.CampaignStateChanged, CampaignID: 1, NewState: campaign.Submission, At: time.Now().UTC()},
	}))
	require.NoError(t, log.Close())

	reopened, err := ledger.NewBadgerLog(dir)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.Replay(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, ledger.CampaignCreated, events[0].Kind)
	require.NotNil(t, events[0].Config)
	assert.Equal(t, cfg.Participants, events[0].Config.Participants)
	assert.Equal(t, campaign.Submission, events[2].NewState)
}
