package coordinator

import (
	"context"
	"io"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
)

// Service is the coordinator's API surface. Write operations marshal into
// ledger transactions; read operations serve the projector's read model.
// Guard violations from the ledger propagate verbatim to the caller.
type Service interface {
	CreateCampaign(ctx context.Context, cfg campaign.Config) (campaign.Campaign, error)
	GetCampaign(ctx context.Context, id uint64) (campaign.Campaign, error)
	SubmitModel(ctx context.Context, trainer campaign.Address, cid string) (ledger.TxReceipt, error)
	SubmitModelCBOR(ctx context.Context, data []byte) (ledger.TxReceipt, error)
	AdvanceRound(ctx context.Context) (ledger.TxReceipt, error)
	CancelCampaign(ctx context.Context) (ledger.TxReceipt, error)

	// TriggerAggregation is the manual operator path racing the
	// event-driven trigger; the ledger's phase check deduplicates them.
	TriggerAggregation(ctx context.Context) error
	AggregationCallback(ctx context.Context, cb aggregator.Callback) error

	Status(ctx context.Context) (Status, error)
	ReadModel(ctx context.Context) (ReadModel, error)
	UploadArtifact(ctx context.Context, data io.Reader) (string, error)

	// Subscribe starts the ledger event pump driving the projector, the
	// orchestrator and the broadcast hub until ctx is cancelled.
	Subscribe(ctx context.Context) error

	Shutdown(ctx context.Context) error
}
