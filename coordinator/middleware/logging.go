package middleware

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/coordinator"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) CreateCampaign(ctx context.Context, cfg campaign.Config) (resp campaign.Campaign, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("campaign",
				slog.String("name", cfg.Name),
				slog.Uint64("total_rounds", cfg.TotalRounds),
				slog.Int("participants", len(cfg.Participants)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create campaign failed", args...)

			return
		}
		lm.logger.Info("Create campaign completed successfully", args...)
	}(time.Now())

	return lm.svc.CreateCampaign(ctx, cfg)
}

func (lm *loggingMiddleware) GetCampaign(ctx context.Context, id uint64) (resp campaign.Campaign, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("campaign_id", id),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get campaign failed", args...)

			return
		}
		lm.logger.Info("Get campaign completed successfully", args...)
	}(time.Now())

	return lm.svc.GetCampaign(ctx, id)
}

func (lm *loggingMiddleware) SubmitModel(ctx context.Context, trainer campaign.Address, cid string) (resp ledger.TxReceipt, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("submission",
				slog.String("trainer", string(trainer)),
				slog.String("cid", cid),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit model failed", args...)

			return
		}
		lm.logger.Info("Submit model completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitModel(ctx, trainer, cid)
}

func (lm *loggingMiddleware) SubmitModelCBOR(ctx context.Context, data []byte) (resp ledger.TxReceipt, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("payload_bytes", len(data)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit CBOR model failed", args...)

			return
		}
		lm.logger.Info("Submit CBOR model completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitModelCBOR(ctx, data)
}

func (lm *loggingMiddleware) AdvanceRound(ctx context.Context) (resp ledger.TxReceipt, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Advance round failed", args...)

			return
		}
		lm.logger.Info("Advance round completed successfully", args...)
	}(time.Now())

	return lm.svc.AdvanceRound(ctx)
}

func (lm *loggingMiddleware) CancelCampaign(ctx context.Context) (resp ledger.TxReceipt, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Cancel campaign failed", args...)

			return
		}
		lm.logger.Info("Cancel campaign completed successfully", args...)
	}(time.Now())

	return lm.svc.CancelCampaign(ctx)
}

func (lm *loggingMiddleware) TriggerAggregation(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Trigger aggregation failed", args...)

			return
		}
		lm.logger.Info("Trigger aggregation completed successfully", args...)
	}(time.Now())

	return lm.svc.TriggerAggregation(ctx)
}

func (lm *loggingMiddleware) AggregationCallback(ctx context.Context, cb aggregator.Callback) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("callback",
				slog.String("round_id", cb.RoundID),
				slog.String("status", cb.Status),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Aggregation callback failed", args...)

			return
		}
		lm.logger.Info("Aggregation callback completed successfully", args...)
	}(time.Now())

	return lm.svc.AggregationCallback(ctx, cb)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (resp coordinator.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get status failed", args...)

			return
		}
		lm.logger.Info("Get status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) ReadModel(ctx context.Context) (resp coordinator.ReadModel, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get read model failed", args...)

			return
		}
		lm.logger.Info("Get read model completed successfully", args...)
	}(time.Now())

	return lm.svc.ReadModel(ctx)
}

func (lm *loggingMiddleware) UploadArtifact(ctx context.Context, data io.Reader) (cid string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("cid", cid),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Upload artifact failed", args...)

			return
		}
		lm.logger.Info("Upload artifact completed successfully", args...)
	}(time.Now())

	return lm.svc.UploadArtifact(ctx, data)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe failed", args...)

			return
		}
		lm.logger.Info("Subscribe completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}

func (lm *loggingMiddleware) Shutdown(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Shutdown failed", args...)

			return
		}
		lm.logger.Info("Shutdown completed successfully", args...)
	}(time.Now())

	return lm.svc.Shutdown(ctx)
}
