package coordinator_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/coordinator"
	"github.com/absmach/federator/coordinator/mocks"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
)

type harness struct {
	svc    coordinator.Service
	client ledger.Client
	store  *mocks.MockStore
	runner *mocks.MockRunner
	hub    *coordinator.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	client, err := ledger.NewMachine(context.Background(), owner, ledger.NewMemoryLog(), slog.Default())
	require.NoError(t, err)

	store := new(mocks.MockStore)
	runner := new(mocks.MockRunner)
	projector := coordinator.NewProjector(client, slog.Default())
	orch := coordinator.NewOrchestrator(client, store, runner, owner, t.TempDir(), callbackURL, slog.Default())
	hub := coordinator.NewHub(projector.Snapshot, slog.Default())
	svc := coordinator.NewService(client, projector, orch, hub, store, nil, owner, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, svc.Subscribe(ctx))

	return &harness{svc: svc, client: client, store: store, runner: runner, hub: hub}
}

func TestServiceCreateCampaign(t *testing.T) {
	h := newHarness(t)

	c, err := h.svc.CreateCampaign(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.ID)
	assert.Equal(t, "mnist", c.Name)
	assert.Equal(t, campaign.Submission, c.State)

	got, err := h.svc.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = h.svc.GetCampaign(context.Background(), 42)
	assert.ErrorIs(t, err, campaign.ErrNoCampaign)
}

func TestServiceCreateCampaignGeneratesName(t *testing.T) {
	h := newHarness(t)

	cfg := testConfig()
	cfg.Name = ""
	c, err := h.svc.CreateCampaign(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Name)
}

func TestServiceSubmitModelCBOR(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateCampaign(context.Background(), testConfig())
	require.NoError(t, err)

	data, err := cbor.Marshal(map[string]string{
		"trainer": string(trainer1),
		"cid":     "bafybeigdyrzt5a",
	})
	require.NoError(t, err)

	receipt, err := h.svc.SubmitModelCBOR(context.Background(), data)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)

	_, err = h.svc.SubmitModelCBOR(context.Background(), []byte("garbage"))
	assert.Error(t, err)

	model, err := h.svc.ReadModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{string(trainer1): "bafybeigdyrzt5a"}, model.Submissions)
}

func TestServiceFullRoundLifecycle(t *testing.T) {
	h := newHarness(t)

	h.store.On("Get", mock.Anything, mock.Anything).Return(io.NopCloser(strings.NewReader("weights")), nil)
	h.store.On("Put", mock.Anything, mock.Anything).Return("bafybeigdyrzt5agg1", nil)

	dispatched := make(chan aggregator.Request, 1)
	h.runner.On("Dispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		dispatched <- args.Get(1).(aggregator.Request)
	}).Return(nil)

	_, err := h.svc.CreateCampaign(context.Background(), testConfig())
	require.NoError(t, err)

	_, err = h.svc.SubmitModel(context.Background(), trainer1, "bafybeigdyrzt5a")
	require.NoError(t, err)
	_, err = h.svc.SubmitModel(context.Background(), trainer2, "bafybeigdyrzt5b")
	require.NoError(t, err)

	// Quorum of two reached, anyone may advance. The event pump then fires
	// the aggregation trigger without further calls.
	_, err = h.svc.AdvanceRound(context.Background())
	require.NoError(t, err)

	var req aggregator.Request
	select {
	case req = <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for aggregation dispatch")
	}
	assert.Equal(t, "1_1", req.RoundID)

	// The external job reports success; the callback finalizes the round and
	// the next one opens with the aggregated model.
	artifact := filepath.Join(t.TempDir(), "aggregated.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("aggregated"), 0o644))
	require.NoError(t, h.svc.AggregationCallback(context.Background(), aggregator.Callback{
		RoundID:      req.RoundID,
		Status:       aggregator.StatusOK,
		ArtifactPath: artifact,
	}))

	status, err := h.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Round)
	assert.Equal(t, campaign.Submission.String(), status.State)
	assert.Equal(t, "bafybeigdyrzt5agg1", status.GlobalModelCID)
}

func TestServiceFinalRoundCompletesCampaign(t *testing.T) {
	h := newHarness(t)

	h.store.On("Get", mock.Anything, mock.Anything).Return(io.NopCloser(strings.NewReader("weights")), nil)
	h.store.On("Put", mock.Anything, mock.Anything).Return("bafybeigdyrzt5final", nil)
	h.runner.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	cfg := testConfig()
	cfg.TotalRounds = 1
	_, err := h.svc.CreateCampaign(context.Background(), cfg)
	require.NoError(t, err)
	_, err = h.svc.SubmitModel(context.Background(), trainer1, "bafybeigdyrzt5a")
	require.NoError(t, err)
	_, err = h.svc.SubmitModel(context.Background(), trainer2, "bafybeigdyrzt5b")
	require.NoError(t, err)
	_, err = h.svc.AdvanceRound(context.Background())
	require.NoError(t, err)

	artifact := filepath.Join(t.TempDir(), "aggregated.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("aggregated"), 0o644))
	require.NoError(t, h.svc.AggregationCallback(context.Background(), aggregator.Callback{
		RoundID:      "1_1",
		Status:       aggregator.StatusOK,
		ArtifactPath: artifact,
	}))

	status, err := h.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, campaign.Inactive.String(), status.State)

	// A completed campaign frees the slot for the next one.
	_, err = h.svc.CreateCampaign(context.Background(), testConfig())
	require.NoError(t, err)
}

func TestServiceCancelCampaign(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateCampaign(context.Background(), testConfig())
	require.NoError(t, err)

	receipt, err := h.svc.CancelCampaign(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)

	status, err := h.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, campaign.Inactive.String(), status.State)

	_, err = h.svc.CancelCampaign(context.Background())
	assert.ErrorIs(t, err, campaign.ErrNoCampaign)
}

func TestServiceUploadArtifact(t *testing.T) {
	h := newHarness(t)
	h.store.On("Put", mock.Anything, mock.Anything).Return("bafybeigdyrzt5up", nil)

	cid, err := h.svc.UploadArtifact(context.Background(), strings.NewReader("weights"))
	require.NoError(t, err)
	assert.Equal(t, "bafybeigdyrzt5up", cid)
	h.store.AssertExpectations(t)
}

func TestServiceShutdown(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.svc.Shutdown(context.Background()))
}
