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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/coordinator"
	"github.com/absmach/federator/coordinator/mocks"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
)

const callbackURL = "http://localhost:8080/callback"

func aggregationReady(t *testing.T) ledger.Client {
	t.Helper()
	m, err := ledger.NewMachine(context.Background(), owner, ledger.NewMemoryLog(), slog.Default())
	require.NoError(t, err)
	_, err = m.CreateCampaign(context.Background(), owner, testConfig())
	require.NoError(t, err)
	_, err = m.SubmitModel(context.Background(), trainer1, "bafybeigdyrzt5a")
	require.NoError(t, err)
	_, err = m.SubmitModel(context.Background(), trainer2, "bafybeigdyrzt5b")
	require.NoError(t, err)
	_, err = m.AttemptAdvanceToAggregation(context.Background())
	require.NoError(t, err)

	return m
}

func TestOrchestratorTrigger(t *testing.T) {
	m := aggregationReady(t)
	store := new(mocks.MockStore)
	runner := new(mocks.MockRunner)
	staging := t.TempDir()

	store.On("Get", mock.Anything, "bafybeigdyrzt5a").Return(io.NopCloser(strings.NewReader("model-a")), nil)
	store.On("Get", mock.Anything, "bafybeigdyrzt5b").Return(io.NopCloser(strings.NewReader("model-b")), nil)

	dispatched := make(chan aggregator.Request, 1)
	runner.On("Dispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		dispatched <- args.Get(1).(aggregator.Request)
	}).Return(nil)

	o := coordinator.NewOrchestrator(m, store, runner, owner, staging, callbackURL, slog.Default())
	require.NoError(t, o.Trigger(context.Background()))

	var req aggregator.Request
	select {
	case req = <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for aggregation dispatch")
	}

	assert.Equal(t, "1_1", req.RoundID)
	assert.Equal(t, callbackURL, req.CallbackURL)
	assert.Equal(t, filepath.Join(staging, "round_1_1"), req.StagingDir)

	first, err := os.ReadFile(filepath.Join(req.StagingDir, "model_1.bin"))
	require.NoError(t, err)
	assert.Equal(t, "model-a", string(first))
	second, err := os.ReadFile(filepath.Join(req.StagingDir, "model_2.bin"))
	require.NoError(t, err)
	assert.Equal(t, "model-b", string(second))

	store.AssertExpectations(t)
}

func TestOrchestratorTriggerWrongPhase(t *testing.T) {
	m, err := ledger.NewMachine(context.Background(), owner, ledger.NewMemoryLog(), slog.Default())
	require.NoError(t, err)
	o := coordinator.NewOrchestrator(m, new(mocks.MockStore), new(mocks.MockRunner), owner, t.TempDir(), callbackURL, slog.Default())

	assert.ErrorIs(t, o.Trigger(context.Background()), campaign.ErrNoCampaign)

	_, err = m.CreateCampaign(context.Background(), owner, testConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, o.Trigger(context.Background()), campaign.ErrWrongPhase)
}

func TestOrchestratorTriggerNoSubmissions(t *testing.T) {
	m, err := ledger.NewMachine(context.Background(), owner, ledger.NewMemoryLog(), slog.Default())
	require.NoError(t, err)
	cfg := testConfig()
	cfg.SubmissionPeriod = 10 * time.Millisecond
	_, err = m.CreateCampaign(context.Background(), owner, cfg)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = m.AttemptAdvanceToAggregation(context.Background())
	require.NoError(t, err)

	runner := new(mocks.MockRunner)
	o := coordinator.NewOrchestrator(m, new(mocks.MockStore), runner, owner, t.TempDir(), callbackURL, slog.Default())

	// With nothing to aggregate the round stays put and no job is dispatched.
	require.NoError(t, o.Trigger(context.Background()))
	runner.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)

	c, err := m.Campaign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, campaign.Aggregation, c.State)
}

func TestOrchestratorHandleCallback(t *testing.T) {
	m := aggregationReady(t)
	store := new(mocks.MockStore)
	staging := t.TempDir()
	o := coordinator.NewOrchestrator(m, store, new(mocks.MockRunner), owner, staging, callbackURL, slog.Default())

	artifact := filepath.Join(t.TempDir(), "aggregated.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("aggregated"), 0o644))
	store.On("Put", mock.Anything, mock.Anything).Return("bafybeigdyrzt5agg1", nil)

	err := o.HandleCallback(context.Background(), aggregator.Callback{
		RoundID:      "1_1",
		Status:       aggregator.StatusOK,
		ArtifactPath: artifact,
	})
	require.NoError(t, err)

	c, err := m.Campaign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, campaign.Submission, c.State)
	assert.Equal(t, uint64(2), c.CurrentRound)
	assert.Equal(t, "bafybeigdyrzt5agg1", c.GlobalModelCID)

	assert.NoFileExists(t, artifact)
}

func TestOrchestratorHandleCallbackDuplicate(t *testing.T) {
	m := aggregationReady(t)
	store := new(mocks.MockStore)
	o := coordinator.NewOrchestrator(m, store, new(mocks.MockRunner), owner, t.TempDir(), callbackURL, slog.Default())

	// The round is already finalized when the duplicate arrives.
	_, err := m.FinalizeRound(context.Background(), owner, "bafybeigdyrzt5agg1")
	require.NoError(t, err)

	artifact := filepath.Join(t.TempDir(), "aggregated.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("aggregated"), 0o644))
	store.On("Put", mock.Anything, mock.Anything).Return("bafybeigdyrzt5agg1dup", nil)

	err = o.HandleCallback(context.Background(), aggregator.Callback{
		RoundID:      "1_1",
		Status:       aggregator.StatusOK,
		ArtifactPath: artifact,
	})
	require.NoError(t, err)

	// The duplicate changed nothing: the global model is still the one the
	// first finalize recorded.
	c, err := m.Campaign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "bafybeigdyrzt5agg1", c.GlobalModelCID)
	assert.Equal(t, uint64(2), c.CurrentRound)
}

func TestOrchestratorHandleCallbackFailure(t *testing.T) {
	m := aggregationReady(t)
	store := new(mocks.MockStore)
	o := coordinator.NewOrchestrator(m, store, new(mocks.MockRunner), owner, t.TempDir(), callbackURL, slog.Default())

	err := o.HandleCallback(context.Background(), aggregator.Callback{
		RoundID: "1_1",
		Status:  aggregator.StatusError,
		Message: "aggregation diverged",
	})
	require.NoError(t, err)

	// Failure reports leave the round in Aggregation for manual resolution.
	c, err := m.Campaign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, campaign.Aggregation, c.State)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}
