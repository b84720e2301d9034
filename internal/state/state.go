// Package state gives typed access to the persisted budget, ledger and
// gateway values kept in a store.KV.
package state

import (
	"context"
	"encoding/json"

	"github.com/eshaffer321/nudgepay-go/internal/store"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
	"github.com/pkg/errors"
)

// Store reads and writes typed state. Absent keys decode to defaults.
type Store struct {
	kv store.KV
}

// New wraps a key-value backend
func New(kv store.KV) *Store {
	return &Store{kv: kv}
}

// Subscribe exposes the backend's change feed
func (s *Store) Subscribe() (<-chan store.Change, func()) {
	return s.kv.Subscribe()
}

// Snapshot reads every key at once
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	raw, err := s.kv.Get(ctx, AllKeys...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read state")
	}

	snap := &Snapshot{
		Profile:    DefaultProfile(),
		Ledger:     []LedgerEntry{},
		Recurring:  []RecurringPayment{},
		Categories: DefaultCategories(),
	}
	fields := map[string]interface{}{
		KeyUserProfile:       &snap.Profile,
		KeyLedger:            &snap.Ledger,
		KeyRecurringPayments: &snap.Recurring,
		KeyCategories:        &snap.Categories,
		KeyNessieConfig:      &snap.Config,
		KeyNessieSummary:     &snap.Summary,
	}
	for key, target := range fields {
		if err := decode(raw, key, target); err != nil {
			return nil, err
		}
	}
	if snap.Ledger == nil {
		snap.Ledger = []LedgerEntry{}
	}
	if snap.Recurring == nil {
		snap.Recurring = []RecurringPayment{}
	}
	return snap, nil
}

// Profile returns the budget profile
func (s *Store) Profile(ctx context.Context) (BudgetProfile, error) {
	p := DefaultProfile()
	if err := s.load(ctx, KeyUserProfile, &p); err != nil {
		return p, err
	}
	return p, nil
}

// Ledger returns ledger entries, newest first
func (s *Store) Ledger(ctx context.Context) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	if err := s.load(ctx, KeyLedger, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Recurring returns the recurring payment definitions
func (s *Store) Recurring(ctx context.Context) ([]RecurringPayment, error) {
	var payments []RecurringPayment
	if err := s.load(ctx, KeyRecurringPayments, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// GatewayConfig returns the stored credentials
func (s *Store) GatewayConfig(ctx context.Context) (GatewayConfig, error) {
	var cfg GatewayConfig
	if err := s.load(ctx, KeyNessieConfig, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Summary returns the cached account summary, or nil when none is cached
func (s *Store) Summary(ctx context.Context) (*nessie.AccountSummary, error) {
	var summary *nessie.AccountSummary
	if err := s.load(ctx, KeyNessieSummary, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// Save marshals each value and writes them in one batch, so subscribers see
// a single change
func (s *Store) Save(ctx context.Context, values map[string]interface{}) error {
	batch := make(map[string]json.RawMessage, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s", key)
		}
		batch[key] = data
	}
	return s.SetRaw(ctx, batch)
}

// SetRaw writes values exactly as given
func (s *Store) SetRaw(ctx context.Context, values map[string]json.RawMessage) error {
	if err := s.kv.Set(ctx, values); err != nil {
		return errors.Wrap(err, "failed to write state")
	}
	return nil
}

func (s *Store) load(ctx context.Context, key string, target interface{}) error {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", key)
	}
	return decode(raw, key, target)
}

func decode(raw map[string]json.RawMessage, key string, target interface{}) error {
	data, ok := raw[key]
	if !ok || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.Wrapf(err, "failed to decode %s", key)
	}
	return nil
}
