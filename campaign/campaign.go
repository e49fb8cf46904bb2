package campaign

import (
	"errors"
	"time"
)

// State is the lifecycle phase of a campaign round.
type State uint8

const (
	Inactive State = iota
	Submission
	Validation
	Aggregation
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Submission:
		return "Submission"
	case Validation:
		return "Validation"
	case Aggregation:
		return "Aggregation"
	default:
		return "Unknown"
	}
}

// Address identifies a trainer or owner on the ledger.
type Address string

// Guard violations raised by the ledger state machine. They are rejected
// synchronously, surfaced verbatim to the caller and never retried.
var (
	ErrWrongPhase       = errors.New("operation not allowed in current campaign state")
	ErrUnauthorized     = errors.New("caller is not authorized")
	ErrAlreadySubmitted = errors.New("trainer already submitted a model this round")
	ErrDeadlineExceeded = errors.New("submission deadline has passed")
	ErrCampaignActive   = errors.New("another campaign is already active")
	ErrInvalidParams    = errors.New("invalid campaign parameters")
	ErrQuorumNotMet     = errors.New("submission quorum not met and deadline not passed")
	ErrNoCampaign       = errors.New("no such campaign")
)

// Campaign is one end-to-end multi-round training process. The participant
// set, round budget and quorum are fixed at creation.
type Campaign struct {
	ID                 uint64        `json:"id"`
	Name               string        `json:"name,omitempty"`
	State              State         `json:"state"`
	GlobalModelCID     string        `json:"global_model_cid"`
	CurrentRound       uint64        `json:"current_round"`
	TotalRounds        uint64        `json:"total_rounds"`
	Participants       []Address     `json:"participants"`
	SubmissionDeadline time.Time     `json:"submission_deadline"`
	SubmissionPeriod   time.Duration `json:"submission_period"`
	MinSubmissions     uint64        `json:"min_submissions"`
	SubmissionCounter  uint64        `json:"submission_counter"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Config carries the creation parameters for a campaign.
type Config struct {
	Name             string        `json:"name,omitempty"`
	Participants     []Address     `json:"participants"`
	TotalRounds      uint64        `json:"total_rounds"`
	InitialModelCID  string        `json:"initial_model_cid"`
	SubmissionPeriod time.Duration `json:"submission_period"`
	MinSubmissions   uint64        `json:"min_submissions"`
}

func (c Config) Validate() error {
	if len(c.Participants) == 0 {
		return ErrInvalidParams
	}
	if c.TotalRounds == 0 {
		return ErrInvalidParams
	}
	if c.SubmissionPeriod <= 0 {
		return ErrInvalidParams
	}
	if c.MinSubmissions < 1 || c.MinSubmissions > uint64(len(c.Participants)) {
		return ErrInvalidParams
	}

	return nil
}

// Authorized reports whether trainer belongs to the campaign's fixed
// participant set.
func (c Campaign) Authorized(trainer Address) bool {
	for _, p := range c.Participants {
		if p == trainer {
			return true
		}
	}

	return false
}

// ModelSubmission is one trainer's model offer for a round. Submissions are
// valid by default; the Validation phase is a transition slot without vote
// weighting.
type ModelSubmission struct {
	CID        string    `json:"cid"`
	Trainer    Address   `json:"trainer"`
	Round      uint64    `json:"round"`
	CampaignID uint64    `json:"campaign_id"`
	Valid      bool      `json:"valid"`
	ReceivedAt time.Time `json:"received_at"`
}
