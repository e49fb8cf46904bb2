package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
	"github.com/absmach/federator/pkg/artifacts"
)

// Orchestrator bridges the ledger's Aggregation state to the external
// aggregation job. The ledger's own phase check on finalize is the sole
// exactly-once guard; the orchestrator keeps no dispatch table that could
// desync from ledger truth after a restart.
type Orchestrator struct {
	client      ledger.Client
	store       artifacts.Store
	runner      aggregator.Runner
	owner       campaign.Address
	stagingRoot string
	callbackURL string
	logger      *slog.Logger
}

func NewOrchestrator(client ledger.Client, store artifacts.Store, runner aggregator.Runner, owner campaign.Address, stagingRoot, callbackURL string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		client:      client,
		store:       store,
		runner:      runner,
		owner:       owner,
		stagingRoot: stagingRoot,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// Trigger stages the current round's valid submissions and dispatches the
// aggregation job. It returns once the job is dispatched; completion arrives
// via HandleCallback. With no stageable submissions the round stays in
// Aggregation until an operator finalizes or cancels.
func (o *Orchestrator) Trigger(ctx context.Context) error {
	id, err := o.client.ActiveCampaignID(ctx)
	if err != nil {
		return err
	}
	if id == 0 {
		return campaign.ErrNoCampaign
	}
	c, err := o.client.Campaign(ctx, id)
	if err != nil {
		return err
	}
	if c.State != campaign.Aggregation {
		return campaign.ErrWrongPhase
	}

	roundID := fmt.Sprintf("%d_%d", c.ID, c.CurrentRound)

	cids, err := o.client.ValidModelsForCurrentRound(ctx)
	if err != nil {
		return err
	}
	if len(cids) == 0 {
		o.logger.Warn("no valid submissions to aggregate, round left in aggregation",
			slog.String("round_id", roundID))

		return nil
	}

	dir := filepath.Join(o.stagingRoot, "round_"+roundID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	staged := 0
	for i, cidStr := range cids {
		if err := o.stage(ctx, dir, i+1, cidStr); err != nil {
			o.logger.Warn("failed to stage submission",
				slog.String("round_id", roundID),
				slog.String("cid", cidStr),
				slog.Any("error", err))

			continue
		}
		staged++
	}
	if staged == 0 {
		o.logger.Warn("no submissions staged successfully, round left in aggregation",
			slog.String("round_id", roundID))

		return nil
	}

	req := aggregator.Request{
		RoundID:     roundID,
		StagingDir:  dir,
		CallbackURL: o.callbackURL,
	}
	go func() {
		if err := o.runner.Dispatch(context.WithoutCancel(ctx), req); err != nil {
			o.logger.Error("failed to dispatch aggregation job",
				slog.String("round_id", roundID),
				slog.Any("error", err))

			return
		}
		o.logger.Info("aggregation job dispatched",
			slog.String("round_id", roundID),
			slog.Int("models", staged))
	}()

	return nil
}

// stage downloads one submission into the round's staging directory. Files
// are named by submission index, not CID, so the external job has a stable
// naming convention.
func (o *Orchestrator) stage(ctx context.Context, dir string, index int, cidStr string) error {
	body, err := o.store.Get(ctx, cidStr)
	if err != nil {
		return err
	}
	defer body.Close()

	path := filepath.Join(dir, fmt.Sprintf("model_%d.bin", index))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// HandleCallback finalizes the round for a successful job report. A finalize
// rejected because the phase already advanced means a duplicate or late
// callback; that is success-already-happened, not an error. Failure reports
// are logged and the round stays in Aggregation for manual resolution.
func (o *Orchestrator) HandleCallback(ctx context.Context, cb aggregator.Callback) error {
	if cb.Status != aggregator.StatusOK {
		o.logger.Error("aggregation job reported failure, round left in aggregation",
			slog.String("round_id", cb.RoundID),
			slog.String("message", cb.Message))

		return nil
	}

	f, err := os.Open(cb.ArtifactPath)
	if err != nil {
		o.logger.Error("failed to open produced artifact",
			slog.String("round_id", cb.RoundID),
			slog.Any("error", err))

		return err
	}
	defer f.Close()

	newCID, err := o.store.Put(ctx, f)
	if err != nil {
		o.logger.Error("failed to store aggregated model",
			slog.String("round_id", cb.RoundID),
			slog.Any("error", err))

		return err
	}

	if _, err := o.client.FinalizeRound(ctx, o.owner, newCID); err != nil {
		if errors.Is(err, campaign.ErrWrongPhase) || errors.Is(err, campaign.ErrNoCampaign) {
			o.logger.Info("round already finalized, treating callback as duplicate",
				slog.String("round_id", cb.RoundID))
			o.cleanup(cb)

			return nil
		}
		o.logger.Error("failed to finalize round",
			slog.String("round_id", cb.RoundID),
			slog.Any("error", err))

		return err
	}

	o.logger.Info("round finalized",
		slog.String("round_id", cb.RoundID),
		slog.String("new_model_cid", newCID))
	o.cleanup(cb)

	return nil
}

func (o *Orchestrator) cleanup(cb aggregator.Callback) {
	dir := filepath.Join(o.stagingRoot, "round_"+cb.RoundID)
	if err := os.RemoveAll(dir); err != nil {
		o.logger.Warn("failed to remove staging directory", slog.Any("error", err))
	}
	if cb.ArtifactPath != "" {
		if err := os.Remove(cb.ArtifactPath); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("failed to remove produced artifact", slog.Any("error", err))
		}
	}
}
