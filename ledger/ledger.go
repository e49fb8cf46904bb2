package ledger

import (
	"context"

	"github.com/absmach/federator/campaign"
)

// TxReceipt acknowledges inclusion of a state-changing call. FirstSeq and
// LastSeq bound the events the call appended to the log.
type TxReceipt struct {
	ID       string `json:"id"`
	FirstSeq uint64 `json:"first_seq"`
	LastSeq  uint64 `json:"last_seq"`
}

// Client is typed access to the authoritative campaign state machine. Write
// calls submit a transaction and return once it is included; guard
// violations are returned as the campaign package's sentinel errors and are
// never retried by the client.
type Client interface {
	CreateCampaign(ctx context.Context, caller campaign.Address, cfg campaign.Config) (TxReceipt, error)
	SubmitModel(ctx context.Context, caller campaign.Address, cid string) (TxReceipt, error)
	AttemptAdvanceToAggregation(ctx context.Context) (TxReceipt, error)
	FinalizeRound(ctx context.Context, caller campaign.Address, newGlobalModelCID string) (TxReceipt, error)
	CancelCampaign(ctx context.Context, caller campaign.Address) (TxReceipt, error)

	ActiveCampaignID(ctx context.Context) (uint64, error)
	Campaign(ctx context.Context, id uint64) (campaign.Campaign, error)
	ValidModelsForCurrentRound(ctx context.Context) ([]string, error)

	// Events replays the log from fromSeq (inclusive) to the latest event.
	Events(ctx context.Context, fromSeq uint64) ([]Event, error)

	// Subscribe delivers every event appended after the call, in sequence
	// order, until ctx is cancelled. It is not restartable without a
	// replay from offset; a missed window must be recovered via Events.
	Subscribe(ctx context.Context) (<-chan Event, error)
}
