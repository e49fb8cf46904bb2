package middleware

import (
	"context"
	"io"
	"time"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/coordinator"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
	"github.com/go-kit/kit/metrics"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) CreateCampaign(ctx context.Context, cfg campaign.Config) (campaign.Campaign, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-campaign").Add(1)
		mm.latency.With("method", "create-campaign").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateCampaign(ctx, cfg)
}

func (mm *metricsMiddleware) GetCampaign(ctx context.Context, id uint64) (campaign.Campaign, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-campaign").Add(1)
		mm.latency.With("method", "get-campaign").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetCampaign(ctx, id)
}

func (mm *metricsMiddleware) SubmitModel(ctx context.Context, trainer campaign.Address, cid string) (ledger.TxReceipt, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-model").Add(1)
		mm.latency.With("method", "submit-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitModel(ctx, trainer, cid)
}

func (mm *metricsMiddleware) SubmitModelCBOR(ctx context.Context, data []byte) (ledger.TxReceipt, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-model-cbor").Add(1)
		mm.latency.With("method", "submit-model-cbor").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitModelCBOR(ctx, data)
}

func (mm *metricsMiddleware) AdvanceRound(ctx context.Context) (ledger.TxReceipt, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "advance-round").Add(1)
		mm.latency.With("method", "advance-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.AdvanceRound(ctx)
}

func (mm *metricsMiddleware) CancelCampaign(ctx context.Context) (ledger.TxReceipt, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "cancel-campaign").Add(1)
		mm.latency.With("method", "cancel-campaign").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CancelCampaign(ctx)
}

func (mm *metricsMiddleware) TriggerAggregation(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "trigger-aggregation").Add(1)
		mm.latency.With("method", "trigger-aggregation").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.TriggerAggregation(ctx)
}

func (mm *metricsMiddleware) AggregationCallback(ctx context.Context, cb aggregator.Callback) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "aggregation-callback").Add(1)
		mm.latency.With("method", "aggregation-callback").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.AggregationCallback(ctx, cb)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (coordinator.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-status").Add(1)
		mm.latency.With("method", "get-status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) ReadModel(ctx context.Context) (coordinator.ReadModel, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-read-model").Add(1)
		mm.latency.With("method", "get-read-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ReadModel(ctx)
}

func (mm *metricsMiddleware) UploadArtifact(ctx context.Context, data io.Reader) (string, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "upload-artifact").Add(1)
		mm.latency.With("method", "upload-artifact").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.UploadArtifact(ctx, data)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "subscribe").Add(1)
		mm.latency.With("method", "subscribe").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Subscribe(ctx)
}

func (mm *metricsMiddleware) Shutdown(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "shutdown").Add(1)
		mm.latency.With("method", "shutdown").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Shutdown(ctx)
}
