package ledger

import (
	"context"
	"sync"
)

// EventLog is the ledger's durable append-only journal. Append assigns no
// sequence numbers; events arrive already numbered by the state machine and
// the log must persist them atomically.
type EventLog interface {
	Append(ctx context.Context, events []Event) error
	Replay(ctx context.Context, fromSeq uint64) ([]Event, error)
	LastSeq(ctx context.Context) (uint64, error)
	Close() error
}

type memoryLog struct {
	sync.RWMutex

	events []Event
}

// NewMemoryLog returns a volatile EventLog for tests and single-run setups.
func NewMemoryLog() EventLog {
	return &memoryLog{}
}

func (l *memoryLog) Append(_ context.Context, events []Event) error {
	l.Lock()
	defer l.Unlock()

	l.events = append(l.events, events...)

	return nil
}

func (l *memoryLog) Replay(_ context.Context, fromSeq uint64) ([]Event, error) {
	l.RLock()
	defer l.RUnlock()

	out := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		if e.Seq >= fromSeq {
			out = append(out, e)
		}
	}

	return out, nil
}

func (l *memoryLog) LastSeq(_ context.Context) (uint64, error) {
	l.RLock()
	defer l.RUnlock()

	if len(l.events) == 0 {
		return 0, nil
	}

	return l.events[len(l.events)-1].Seq, nil
}

func (l *memoryLog) Close() error {
	return nil
}
