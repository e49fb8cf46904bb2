package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/ledger"
)

// ProjectorState reports the projector's own condition. Degraded is entered
// on a failed refresh and left automatically on the next successful one.
type ProjectorState uint8

const (
	Idle ProjectorState = iota
	Refreshing
	Degraded
)

func (s ProjectorState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Refreshing:
		return "Refreshing"
	case Degraded:
		return "Degraded"
	default:
		return "Unknown"
	}
}

// Status is the point-read view of the active campaign. It reflects the
// latest ledger values, not a folded history.
type Status struct {
	CampaignID     uint64 `json:"campaign_id"`
	CampaignName   string `json:"campaign_name,omitempty"`
	Round          uint64 `json:"round"`
	GlobalModelCID string `json:"global_model_cid"`
	State          string `json:"state"`
	TotalRounds    uint64 `json:"total_rounds"`
}

// StateChange is one folded CampaignStateChanged fact.
type StateChange struct {
	CampaignID uint64    `json:"campaign_id"`
	NewState   string    `json:"new_state"`
	At         time.Time `json:"at"`
}

// ModelChange is one folded GlobalModelChanged fact.
type ModelChange struct {
	CampaignID uint64    `json:"campaign_id"`
	Round      uint64    `json:"round"`
	CID        string    `json:"cid"`
	At         time.Time `json:"at"`
}

// ReadModel is the coordinator-local, eventually-consistent mirror of ledger
// state plus the hub's live participant registry. It is fully derivable from
// the event log and never authoritative.
type ReadModel struct {
	Status       Status            `json:"status"`
	StateHistory []StateChange     `json:"state_history"`
	ModelHistory []ModelChange     `json:"model_history"`
	Participants []string          `json:"participants"`
	Submissions  map[string]string `json:"submissions"`
}

const degradedState = "Error"

// Projector replays the ledger's event log into a local read model. The
// status view comes from direct point queries; the histories and the
// per-round submission map come from folding events, incrementally from the
// last seen sequence.
type Projector struct {
	mu sync.RWMutex

	client ledger.Client
	logger *slog.Logger

	state           ProjectorState
	lastSeq         uint64
	stateHistory    []StateChange
	modelHistory    []ModelChange
	submissions     map[submissionKey]string
	currentCampaign uint64
	currentRound    uint64
	status          Status
}

type submissionKey struct {
	campaignID uint64
	round      uint64
	trainer    campaign.Address
}

func NewProjector(client ledger.Client, logger *slog.Logger) *Projector {
	return &Projector{
		client:      client,
		logger:      logger,
		submissions: make(map[submissionKey]string),
	}
}

// Refresh folds any unseen events and re-reads the status view. On ledger
// failure it degrades the read model to an Error status instead of failing;
// callers treat that as a live status value.
func (p *Projector) Refresh(ctx context.Context) ReadModel {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = Refreshing

	status, err := p.readStatus(ctx)
	if err != nil {
		return p.degrade(err)
	}

	events, err := p.client.Events(ctx, p.lastSeq+1)
	if err != nil {
		return p.degrade(err)
	}
	for _, e := range events {
		p.fold(e)
	}

	p.status = status
	p.state = Idle

	return p.snapshot()
}

// Snapshot returns the current read model without touching the ledger.
func (p *Projector) Snapshot() ReadModel {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.state == Degraded {
		return ReadModel{Status: Status{State: degradedState}, Submissions: map[string]string{}}
	}

	return p.snapshot()
}

// State reports the projector's own condition.
func (p *Projector) State() ProjectorState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state
}

func (p *Projector) readStatus(ctx context.Context) (Status, error) {
	id, err := p.client.ActiveCampaignID(ctx)
	if err != nil {
		return Status{}, err
	}
	if id == 0 {
		return Status{State: campaign.Inactive.String()}, nil
	}

	c, err := p.client.Campaign(ctx, id)
	if err != nil {
		return Status{}, err
	}

	return Status{
		CampaignID:     c.ID,
		CampaignName:   c.Name,
		Round:          c.CurrentRound,
		GlobalModelCID: c.GlobalModelCID,
		State:          c.State.String(),
		TotalRounds:    c.TotalRounds,
	}, nil
}

// fold is idempotent under at-least-once delivery: submissions are keyed by
// (campaign, round, trainer), so re-observing an event cannot double count.
func (p *Projector) fold(e ledger.Event) {
	switch e.Kind {
	case ledger.CampaignStateChanged:
		p.stateHistory = append(p.stateHistory, StateChange{
			CampaignID: e.CampaignID,
			NewState:   e.NewState.String(),
			At:         e.At,
		})
	case ledger.GlobalModelChanged:
		p.modelHistory = append(p.modelHistory, ModelChange{
			CampaignID: e.CampaignID,
			Round:      e.Round,
			CID:        e.CID,
			At:         e.At,
		})
	case ledger.NewRoundStarted:
		// Keyed by (campaign, round): two campaigns both open at round 1,
		// so the round number alone cannot tell them apart.
		if e.CampaignID != p.currentCampaign || e.Round != p.currentRound {
			p.currentCampaign = e.CampaignID
			p.currentRound = e.Round
			clear(p.submissions)
		}
	case ledger.ModelSubmitted:
		p.submissions[submissionKey{e.CampaignID, e.Round, e.Trainer}] = e.CID
	case ledger.CampaignCancelled:
		clear(p.submissions)
	}

	if e.Seq > p.lastSeq {
		p.lastSeq = e.Seq
	}
}

func (p *Projector) degrade(err error) ReadModel {
	p.state = Degraded
	p.logger.Warn("projector degraded, serving error status", slog.Any("error", err))

	return ReadModel{Status: Status{State: degradedState}, Submissions: map[string]string{}}
}

// snapshot assembles the externally visible model. Histories are internally
// oldest-first and exposed newest-first. Callers hold p.mu.
func (p *Projector) snapshot() ReadModel {
	states := make([]StateChange, len(p.stateHistory))
	for i, s := range p.stateHistory {
		states[len(states)-1-i] = s
	}
	models := make([]ModelChange, len(p.modelHistory))
	for i, m := range p.modelHistory {
		models[len(models)-1-i] = m
	}

	subs := make(map[string]string, len(p.submissions))
	for k, cid := range p.submissions {
		if k.campaignID == p.currentCampaign && k.round == p.currentRound {
			subs[string(k.trainer)] = cid
		}
	}

	return ReadModel{
		Status:       p.status,
		StateHistory: states,
		ModelHistory: models,
		Submissions:  subs,
	}
}
