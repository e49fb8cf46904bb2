package ledger

import (
	"time"

	"github.com/absmach/federator/campaign"
)

// EventKind tags the append-only facts emitted by the ledger.
type EventKind string

const (
	CampaignCreated      EventKind = "campaign_created"
	NewRoundStarted      EventKind = "new_round_started"
	ModelSubmitted       EventKind = "model_submitted"
	RoundFinalized       EventKind = "round_finalized"
	CampaignCompleted    EventKind = "campaign_completed"
	CampaignCancelled    EventKind = "campaign_cancelled"
	CampaignStateChanged EventKind = "campaign_state_changed"
	GlobalModelChanged   EventKind = "global_model_changed"
)

// Event is one immutable, totally ordered fact. Seq is assigned by the
// ledger and is strictly increasing; replaying events from genesis in Seq
// order reconstructs the full campaign state.
//
// CampaignCreated additionally carries the campaign configuration so that a
// cold replay can rebuild guard state (participants, quorum, round budget).
type Event struct {
	Seq        uint64           `json:"seq"`
	Kind       EventKind        `json:"kind"`
	CampaignID uint64           `json:"campaign_id"`
	Round      uint64           `json:"round,omitempty"`
	Trainer    campaign.Address `json:"trainer,omitempty"`
	CID        string           `json:"cid,omitempty"`
	NewState   campaign.State   `json:"new_state,omitempty"`
	Deadline   time.Time        `json:"deadline,omitzero"`
	Config     *campaign.Config `json:"config,omitempty"`
	At         time.Time        `json:"at"`
}
