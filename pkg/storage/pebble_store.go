package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/gutsysingh/PTApp/pkg/ledger"
)

// PebbleJournal is a write-behind audit copy of the ledger. The engine never
// reads it back at start-up; it exists for offline inspection.
type PebbleJournal struct {
	db *pebble.DB
}

func NewPebbleJournal(path string) (*PebbleJournal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleJournal{db: db}, nil
}

// NewInMemoryJournal backs the journal with an in-memory filesystem.
func NewInMemoryJournal() (*PebbleJournal, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &PebbleJournal{db: db}, nil
}

func (s *PebbleJournal) Close() error { return s.db.Close() }

// RecordOrder persists the current state of an order
func (s *PebbleJournal) RecordOrder(o ledger.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(o.ID), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// RecordCycle writes a matching pass (the trades plus the orders they
// touched) in one batch.
func (s *PebbleJournal) RecordCycle(trades []ledger.Trade, orders []ledger.Order) error {
	if len(trades) == 0 && len(orders) == 0 {
		return nil
	}
	b := s.db.NewBatch()
	defer b.Close()

	for _, t := range trades {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal trade: %w", err)
		}
		if err := b.Set(tradeKey(t.ID), data, nil); err != nil {
			return fmt.Errorf("failed to stage trade: %w", err)
		}
	}
	for _, o := range orders {
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("failed to marshal order: %w", err)
		}
		if err := b.Set(orderKey(o.ID), data, nil); err != nil {
			return fmt.Errorf("failed to stage order: %w", err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}
	return nil
}

// LoadOrders returns journaled orders in id order
func (s *PebbleJournal) LoadOrders() ([]ledger.Order, error) {
	var orders []ledger.Order
	err := s.scan([]byte(prefixOrder), func(v []byte) error {
		var o ledger.Order
		if err := json.Unmarshal(v, &o); err != nil {
			return fmt.Errorf("failed to unmarshal order: %w", err)
		}
		orders = append(orders, o)
		return nil
	})
	return orders, err
}

// LoadTrades returns journaled trades in id order
func (s *PebbleJournal) LoadTrades() ([]ledger.Trade, error) {
	var trades []ledger.Trade
	err := s.scan([]byte(prefixTrade), func(v []byte) error {
		var t ledger.Trade
		if err := json.Unmarshal(v, &t); err != nil {
			return fmt.Errorf("failed to unmarshal trade: %w", err)
		}
		trades = append(trades, t)
		return nil
	})
	return trades, err
}

func (s *PebbleJournal) scan(prefix []byte, fn func(v []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
