package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/federator/campaign"
	"github.com/google/uuid"
)

const subscriberBuffer = 256

var _ Client = (*machine)(nil)

// machine is the authoritative campaign state machine. It serializes every
// mutation itself; callers do no locking and conflicting calls simply fail
// their guard conditions. Accepted mutations append their events to the
// durable log before becoming observable, so a cold start replays the log
// and arrives at the exact same state.
type machine struct {
	mu sync.RWMutex

	owner       campaign.Address
	log         EventLog
	logger      *slog.Logger
	campaigns   map[uint64]*campaign.Campaign
	submissions map[uint64][]campaign.ModelSubmission
	activeID    uint64
	nextID      uint64
	nextSeq     uint64

	subMu sync.Mutex
	subs  map[uint64]chan Event
	subID uint64
}

// NewMachine opens the state machine over log, replaying any persisted
// events to recover prior state. Owner is the only identity allowed to
// create, finalize and cancel campaigns.
func NewMachine(ctx context.Context, owner campaign.Address, log EventLog, logger *slog.Logger) (Client, error) {
	m := &machine{
		owner:       owner,
		log:         log,
		logger:      logger,
		campaigns:   make(map[uint64]*campaign.Campaign),
		submissions: make(map[uint64][]campaign.ModelSubmission),
		nextID:      1,
		nextSeq:     1,
		subs:        make(map[uint64]chan Event),
	}

	events, err := log.Replay(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range events {
		m.apply(events[i])
	}
	if len(events) > 0 {
		m.nextSeq = events[len(events)-1].Seq + 1
	}

	return m, nil
}

func (m *machine) CreateCampaign(ctx context.Context, caller campaign.Address, cfg campaign.Config) (TxReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.owner {
		return TxReceipt{}, campaign.ErrUnauthorized
	}
	if m.activeID != 0 {
		return TxReceipt{}, campaign.ErrCampaignActive
	}
	if err := cfg.Validate(); err != nil {
		return TxReceipt{}, err
	}

	now := time.Now()
	id := m.nextID
	deadline := now.Add(cfg.SubmissionPeriod)

	events := []Event{
		{Kind: CampaignCreated, CampaignID: id, Config: &cfg, Deadline: deadline, At: now},
		{Kind: NewRoundStarted, CampaignID: id, Round: 1, CID: cfg.InitialModelCID, Deadline: deadline, At: now},
		{Kind: CampaignStateChanged, CampaignID: id, NewState: campaign.Submission, At: now},
	}

	return m.commit(ctx, events)
}

func (m *machine) SubmitModel(ctx context.Context, caller campaign.Address, cid string) (TxReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cid == "" {
		return TxReceipt{}, campaign.ErrInvalidParams
	}
	c, err := m.active()
	if err != nil {
		return TxReceipt{}, err
	}
	if c.State != campaign.Submission {
		return TxReceipt{}, campaign.ErrWrongPhase
	}
	if !c.Authorized(caller) {
		return TxReceipt{}, campaign.ErrUnauthorized
	}

	now := time.Now()
	if now.After(c.SubmissionDeadline) {
		return TxReceipt{}, campaign.ErrDeadlineExceeded
	}
	for _, s := range m.submissions[c.ID] {
		if s.Trainer == caller && s.Round == c.CurrentRound {
			return TxReceipt{}, campaign.ErrAlreadySubmitted
		}
	}

	events := []Event{
		{Kind: ModelSubmitted, CampaignID: c.ID, Round: c.CurrentRound, Trainer: caller, CID: cid, At: now},
	}

	return m.commit(ctx, events)
}

// AttemptAdvanceToAggregation is deliberately permissionless: any party
// benefits from round progress, so anyone may pay for the call.
func (m *machine) AttemptAdvanceToAggregation(ctx context.Context) (TxReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.active()
	if err != nil {
		return TxReceipt{}, err
	}
	if c.State != campaign.Submission {
		return TxReceipt{}, campaign.ErrWrongPhase
	}

	now := time.Now()
	if c.SubmissionCounter < c.MinSubmissions && !now.After(c.SubmissionDeadline) {
		return TxReceipt{}, campaign.ErrQuorumNotMet
	}

	events := []Event{
		{Kind: CampaignStateChanged, CampaignID: c.ID, NewState: campaign.Aggregation, At: now},
	}

	return m.commit(ctx, events)
}

// FinalizeRound records the new global model and atomically either opens the
// next round with a fresh deadline or completes the campaign. There is no
// window in which the campaign is open without a deadline.
func (m *machine) FinalizeRound(ctx context.Context, caller campaign.Address, newGlobalModelCID string) (TxReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.owner {
		return TxReceipt{}, campaign.ErrUnauthorized
	}
	if newGlobalModelCID == "" {
		return TxReceipt{}, campaign.ErrInvalidParams
	}
	c, err := m.active()
	if err != nil {
		return TxReceipt{}, err
	}
	if c.State != campaign.Aggregation {
		return TxReceipt{}, campaign.ErrWrongPhase
	}

	now := time.Now()
	round := c.CurrentRound
	events := []Event{
		{Kind: GlobalModelChanged, CampaignID: c.ID, Round: round, NewState: c.State, CID: newGlobalModelCID, At: now},
		{Kind: RoundFinalized, CampaignID: c.ID, Round: round, CID: newGlobalModelCID, At: now},
	}

	if round == c.TotalRounds {
		events = append(events,
			Event{Kind: CampaignCompleted, CampaignID: c.ID, At: now},
			Event{Kind: CampaignStateChanged, CampaignID: c.ID, NewState: campaign.Inactive, At: now},
		)
	} else {
		deadline := now.Add(c.SubmissionPeriod)
		events = append(events,
			Event{Kind: NewRoundStarted, CampaignID: c.ID, Round: round + 1, CID: newGlobalModelCID, Deadline: deadline, At: now},
			Event{Kind: CampaignStateChanged, CampaignID: c.ID, NewState: campaign.Submission, At: now},
		)
	}

	return m.commit(ctx, events)
}

// CancelCampaign forces the campaign to Inactive, discarding in-round
// submissions. Cancellation is terminal for the campaign id; a fresh create
// starts a new one.
func (m *machine) CancelCampaign(ctx context.Context, caller campaign.Address) (TxReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.owner {
		return TxReceipt{}, campaign.ErrUnauthorized
	}
	c, err := m.active()
	if err != nil {
		return TxReceipt{}, err
	}
	if c.State == campaign.Inactive {
		return TxReceipt{}, campaign.ErrWrongPhase
	}

	now := time.Now()
	events := []Event{
		{Kind: CampaignCancelled, CampaignID: c.ID, At: now},
		{Kind: CampaignStateChanged, CampaignID: c.ID, NewState: campaign.Inactive, At: now},
	}

	return m.commit(ctx, events)
}

func (m *machine) ActiveCampaignID(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.activeID, nil
}

func (m *machine) Campaign(_ context.Context, id uint64) (campaign.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return campaign.Campaign{}, campaign.ErrNoCampaign
	}

	return *c, nil
}

// ValidModelsForCurrentRound returns the aggregation frontier for the active
// round in submission order. Without a validator-voting requirement every
// submission in the round is valid.
func (m *machine) ValidModelsForCurrentRound(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.activeID == 0 {
		return nil, campaign.ErrNoCampaign
	}
	c := m.campaigns[m.activeID]

	cids := make([]string, 0, len(m.submissions[c.ID]))
	for _, s := range m.submissions[c.ID] {
		if s.Round == c.CurrentRound && s.Valid {
			cids = append(cids, s.CID)
		}
	}

	return cids, nil
}

func (m *machine) Events(ctx context.Context, fromSeq uint64) ([]Event, error) {
	return m.log.Replay(ctx, fromSeq)
}

func (m *machine) Subscribe(ctx context.Context) (<-chan Event, error) {
	m.subMu.Lock()
	m.subID++
	id := m.subID
	ch := make(chan Event, subscriberBuffer)
	m.subs[id] = ch
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		delete(m.subs, id)
		close(ch)
		m.subMu.Unlock()
	}()

	return ch, nil
}

// commit numbers the events, persists them, applies them to in-memory state
// and fans them out to subscribers. Callers hold m.mu.
func (m *machine) commit(ctx context.Context, events []Event) (TxReceipt, error) {
	first := m.nextSeq
	for i := range events {
		events[i].Seq = m.nextSeq
		m.nextSeq++
	}

	if err := m.log.Append(ctx, events); err != nil {
		m.nextSeq = first

		return TxReceipt{}, err
	}

	for i := range events {
		m.apply(events[i])
	}

	m.publish(events)

	return TxReceipt{
		ID:       uuid.NewString(),
		FirstSeq: first,
		LastSeq:  events[len(events)-1].Seq,
	}, nil
}

func (m *machine) apply(e Event) {
	switch e.Kind {
	case CampaignCreated:
		cfg := *e.Config
		m.campaigns[e.CampaignID] = &campaign.Campaign{
			ID:               e.CampaignID,
			Name:             cfg.Name,
			State:            campaign.Inactive,
			GlobalModelCID:   cfg.InitialModelCID,
			TotalRounds:      cfg.TotalRounds,
			Participants:     cfg.Participants,
			SubmissionPeriod: cfg.SubmissionPeriod,
			MinSubmissions:   cfg.MinSubmissions,
			CreatedAt:        e.At,
		}
		m.activeID = e.CampaignID
		if e.CampaignID >= m.nextID {
			m.nextID = e.CampaignID + 1
		}
	case NewRoundStarted:
		c := m.campaigns[e.CampaignID]
		c.CurrentRound = e.Round
		c.SubmissionDeadline = e.Deadline
		c.SubmissionCounter = 0
		m.submissions[e.CampaignID] = nil
	case ModelSubmitted:
		c := m.campaigns[e.CampaignID]
		c.SubmissionCounter++
		m.submissions[e.CampaignID] = append(m.submissions[e.CampaignID], campaign.ModelSubmission{
			CID:        e.CID,
			Trainer:    e.Trainer,
			Round:      e.Round,
			CampaignID: e.CampaignID,
			Valid:      true,
			ReceivedAt: e.At,
		})
	case GlobalModelChanged:
		m.campaigns[e.CampaignID].GlobalModelCID = e.CID
	case RoundFinalized:
		m.campaigns[e.CampaignID].SubmissionCounter = 0
	case CampaignStateChanged:
		m.campaigns[e.CampaignID].State = e.NewState
	case CampaignCompleted, CampaignCancelled:
		m.activeID = 0
	}
}

func (m *machine) publish(events []Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for id, ch := range m.subs {
		for _, e := range events {
			select {
			case ch <- e:
			default:
				m.logger.Warn("dropping ledger event for slow subscriber",
					slog.Uint64("subscriber", id),
					slog.Uint64("seq", e.Seq),
				)
			}
		}
	}
}

func (m *machine) active() (*campaign.Campaign, error) {
	if m.activeID == 0 {
		return nil, campaign.ErrNoCampaign
	}

	return m.campaigns[m.activeID], nil
}
