package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
	"github.com/absmach/federator/pkg/artifacts"
	"github.com/absmach/federator/pkg/mqtt"
	"github.com/fxamacker/cbor/v2"
)

// Round lifecycle notification topics. Trainers without a live websocket
// follow these instead of the hub.
const (
	TopicRoundStart = "fl/rounds/start"
	TopicRoundNext  = "fl/rounds/next"
)

var namegen = namegenerator.NewGenerator()

type service struct {
	client    ledger.Client
	projector *Projector
	orch      *Orchestrator
	hub       *Hub
	store     artifacts.Store
	pubsub    mqtt.PubSub
	owner     campaign.Address
	logger    *slog.Logger
}

// NewService wires the projector, orchestrator and hub behind the Service
// interface. pubsub may be nil, which disables round notifications.
func NewService(client ledger.Client, projector *Projector, orch *Orchestrator, hub *Hub, store artifacts.Store, pubsub mqtt.PubSub, owner campaign.Address, logger *slog.Logger) Service {
	return &service{
		client:    client,
		projector: projector,
		orch:      orch,
		hub:       hub,
		store:     store,
		pubsub:    pubsub,
		owner:     owner,
		logger:    logger,
	}
}

func (svc *service) CreateCampaign(ctx context.Context, cfg campaign.Config) (campaign.Campaign, error) {
	if cfg.Name == "" {
		cfg.Name = namegen.Generate()
	}

	if _, err := svc.client.CreateCampaign(ctx, svc.owner, cfg); err != nil {
		return campaign.Campaign{}, err
	}

	id, err := svc.client.ActiveCampaignID(ctx)
	if err != nil {
		return campaign.Campaign{}, err
	}
	c, err := svc.client.Campaign(ctx, id)
	if err != nil {
		return campaign.Campaign{}, err
	}

	svc.refreshAndBroadcast(ctx)

	return c, nil
}

func (svc *service) GetCampaign(ctx context.Context, id uint64) (campaign.Campaign, error) {
	return svc.client.Campaign(ctx, id)
}

func (svc *service) SubmitModel(ctx context.Context, trainer campaign.Address, cid string) (ledger.TxReceipt, error) {
	receipt, err := svc.client.SubmitModel(ctx, trainer, cid)
	if err != nil {
		return ledger.TxReceipt{}, err
	}

	svc.refreshAndBroadcast(ctx)

	return receipt, nil
}

// SubmitModelCBOR accepts a CBOR-encoded submission from constrained
// trainers that cannot afford a JSON stack.
func (svc *service) SubmitModelCBOR(ctx context.Context, data []byte) (ledger.TxReceipt, error) {
	var req struct {
		Trainer string `cbor:"trainer"`
		CID     string `cbor:"cid"`
	}
	if err := cbor.Unmarshal(data, &req); err != nil {
		return ledger.TxReceipt{}, fmt.Errorf("failed to decode CBOR submission: %w", err)
	}

	return svc.SubmitModel(ctx, campaign.Address(req.Trainer), req.CID)
}

func (svc *service) AdvanceRound(ctx context.Context) (ledger.TxReceipt, error) {
	receipt, err := svc.client.AttemptAdvanceToAggregation(ctx)
	if err != nil {
		return ledger.TxReceipt{}, err
	}

	svc.refreshAndBroadcast(ctx)

	return receipt, nil
}

func (svc *service) CancelCampaign(ctx context.Context) (ledger.TxReceipt, error) {
	receipt, err := svc.client.CancelCampaign(ctx, svc.owner)
	if err != nil {
		return ledger.TxReceipt{}, err
	}

	svc.refreshAndBroadcast(ctx)

	return receipt, nil
}

func (svc *service) TriggerAggregation(ctx context.Context) error {
	if err := svc.orch.Trigger(ctx); err != nil {
		return err
	}

	svc.refreshAndBroadcast(ctx)

	return nil
}

func (svc *service) AggregationCallback(ctx context.Context, cb aggregator.Callback) error {
	err := svc.orch.HandleCallback(ctx, cb)
	svc.refreshAndBroadcast(ctx)

	return err
}

func (svc *service) Status(ctx context.Context) (Status, error) {
	return svc.projector.Refresh(ctx).Status, nil
}

func (svc *service) ReadModel(ctx context.Context) (ReadModel, error) {
	model := svc.projector.Refresh(ctx)
	model.Participants = svc.hub.Participants()

	return model, nil
}

func (svc *service) UploadArtifact(ctx context.Context, data io.Reader) (string, error) {
	return svc.store.Put(ctx, data)
}

func (svc *service) Subscribe(ctx context.Context) error {
	ch, err := svc.client.Subscribe(ctx)
	if err != nil {
		return err
	}

	go svc.pump(ctx, ch)

	return nil
}

func (svc *service) Shutdown(ctx context.Context) error {
	if svc.pubsub != nil {
		return svc.pubsub.Disconnect(ctx)
	}

	return nil
}

// pump reacts to every ledger event exactly once: refresh the read model,
// kick the orchestrator on the round-closing transition, notify trainers of
// round boundaries and push the fresh snapshot to viewers.
func (svc *service) pump(ctx context.Context, ch <-chan ledger.Event) {
	for e := range ch {
		svc.projector.Refresh(ctx)

		switch e.Kind {
		case ledger.CampaignStateChanged:
			if e.NewState == campaign.Aggregation {
				if err := svc.orch.Trigger(ctx); err != nil {
					svc.logger.Error("aggregation trigger failed",
						slog.Uint64("campaign_id", e.CampaignID),
						slog.Any("error", err))
				}
			}
		case ledger.NewRoundStarted:
			svc.notify(ctx, TopicRoundStart, e)
		case ledger.RoundFinalized:
			svc.notify(ctx, TopicRoundNext, e)
		}

		svc.hub.Broadcast()
	}
}

func (svc *service) notify(ctx context.Context, topic string, e ledger.Event) {
	if svc.pubsub == nil {
		return
	}

	msg := map[string]any{
		"round_id":  fmt.Sprintf("%d_%d", e.CampaignID, e.Round),
		"model_cid": e.CID,
	}
	if !e.Deadline.IsZero() {
		msg["deadline"] = e.Deadline
	}

	if err := svc.pubsub.Publish(ctx, topic, msg); err != nil {
		svc.logger.Warn("failed to publish round notification",
			slog.String("topic", topic),
			slog.Any("error", err))
	}
}

func (svc *service) refreshAndBroadcast(ctx context.Context) {
	svc.projector.Refresh(ctx)
	svc.hub.Broadcast()
}
