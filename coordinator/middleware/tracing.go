package middleware

import (
	"context"
	"io"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/coordinator"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) CreateCampaign(ctx context.Context, cfg campaign.Config) (campaign.Campaign, error) {
	ctx, span := tm.tracer.Start(ctx, "create-campaign", trace.WithAttributes(
		attribute.String("name", cfg.Name),
		attribute.Int64("total_rounds", int64(cfg.TotalRounds)),
	))
	defer span.End()

	return tm.svc.CreateCampaign(ctx, cfg)
}

func (tm *tracing) GetCampaign(ctx context.Context, id uint64) (campaign.Campaign, error) {
	ctx, span := tm.tracer.Start(ctx, "get-campaign", trace.WithAttributes(
		attribute.Int64("campaign_id", int64(id)),
	))
	defer span.End()

	return tm.svc.GetCampaign(ctx, id)
}

func (tm *tracing) SubmitModel(ctx context.Context, trainer campaign.Address, cid string) (ledger.TxReceipt, error) {
	ctx, span := tm.tracer.Start(ctx, "submit-model", trace.WithAttributes(
		attribute.String("trainer", string(trainer)),
		attribute.String("cid", cid),
	))
	defer span.End()

	return tm.svc.SubmitModel(ctx, trainer, cid)
}

func (tm *tracing) SubmitModelCBOR(ctx context.Context, data []byte) (ledger.TxReceipt, error) {
	ctx, span := tm.tracer.Start(ctx, "submit-model-cbor")
	defer span.End()

	return tm.svc.SubmitModelCBOR(ctx, data)
}

func (tm *tracing) AdvanceRound(ctx context.Context) (ledger.TxReceipt, error) {
	ctx, span := tm.tracer.Start(ctx, "advance-round")
	defer span.End()

	return tm.svc.AdvanceRound(ctx)
}

func (tm *tracing) CancelCampaign(ctx context.Context) (ledger.TxReceipt, error) {
	ctx, span := tm.tracer.Start(ctx, "cancel-campaign")
	defer span.End()

	return tm.svc.CancelCampaign(ctx)
}

func (tm *tracing) TriggerAggregation(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "trigger-aggregation")
	defer span.End()

	return tm.svc.TriggerAggregation(ctx)
}

func (tm *tracing) AggregationCallback(ctx context.Context, cb aggregator.Callback) error {
	ctx, span := tm.tracer.Start(ctx, "aggregation-callback", trace.WithAttributes(
		attribute.String("round_id", cb.RoundID),
		attribute.String("status", cb.Status),
	))
	defer span.End()

	return tm.svc.AggregationCallback(ctx, cb)
}

func (tm *tracing) Status(ctx context.Context) (coordinator.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "get-status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) ReadModel(ctx context.Context) (coordinator.ReadModel, error) {
	ctx, span := tm.tracer.Start(ctx, "get-read-model")
	defer span.End()

	return tm.svc.ReadModel(ctx)
}

func (tm *tracing) UploadArtifact(ctx context.Context, data io.Reader) (string, error) {
	ctx, span := tm.tracer.Start(ctx, "upload-artifact")
	defer span.End()

	return tm.svc.UploadArtifact(ctx, data)
}

func (tm *tracing) Subscribe(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}

func (tm *tracing) Shutdown(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "shutdown")
	defer span.End()

	return tm.svc.Shutdown(ctx)
}
