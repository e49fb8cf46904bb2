package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

const eventKeyFormat = "evt/%020d"

type badgerLog struct {
	db *badger.DB
}

// NewBadgerLog opens a Badger-backed EventLog under dataDir. Events are
// keyed by zero-padded sequence number so iteration order equals ledger
// order.
func NewBadgerLog(dataDir string) (EventLog, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(dataDir, "ledger.db"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	return &badgerLog{db: db}, nil
}

func (l *badgerLog) Append(_ context.Context, events []Event) error {
	return l.db.Update(func(txn *badger.Txn) error {
		for _, e := range events {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event %d: %w", e.Seq, err)
			}
			key := fmt.Sprintf(eventKeyFormat, e.Seq)
			if err := txn.Set([]byte(key), data); err != nil {
				return fmt.Errorf("failed to persist event %d: %w", e.Seq, err)
			}
		}

		return nil
	})
}

func (l *badgerLog) Replay(_ context.Context, fromSeq uint64) ([]Event, error) {
	var events []Event
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		start := []byte(fmt.Sprintf(eventKeyFormat, fromSeq))
		for it.Seek(start); it.ValidForPrefix([]byte("evt/")); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e Event
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("failed to unmarshal event: %w", err)
				}
				events = append(events, e)

				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (l *badgerLog) LastSeq(_ context.Context) (uint64, error) {
	var last uint64
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// 0xff sorts after every zero-padded sequence key.
		it.Seek([]byte("evt/\xff"))
		if !it.ValidForPrefix([]byte("evt/")) {
			return badger.ErrKeyNotFound
		}

		return it.Item().Value(func(val []byte) error {
			var e Event
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}
			last = e.Seq

			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return last, nil
}

func (l *badgerLog) Close() error {
	return l.db.Close()
}
