package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeCollection keeps documents in a map and applies replace-upserts
type fakeCollection struct {
	mu            sync.Mutex
	docs          map[string]Document
	bulkWriteFunc func(models []mongo.WriteModel) error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string]Document)}
}

func (f *fakeCollection) FindByIDs(_ context.Context, ids []string) ([]Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Document
	for _, id := range ids {
		if d, ok := f.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeCollection) BulkWrite(_ context.Context, models []mongo.WriteModel, _ ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	if f.bulkWriteFunc != nil {
		if err := f.bulkWriteFunc(models); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range models {
		replace, ok := m.(*mongo.ReplaceOneModel)
		if !ok {
			return nil, errors.New("unexpected write model")
		}
		doc := replace.Replacement.(Document)
		f.docs[doc.Key] = doc
	}
	return &mongo.BulkWriteResult{UpsertedCount: int64(len(models))}, nil
}

type kvCloser interface {
	KV
	Close() error
}

func backends(t *testing.T) map[string]kvCloser {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	return map[string]kvCloser{
		"memory": NewMemory(),
		"sqlite": sqlite,
		"mongo":  NewMongo(newFakeCollection()),
	}
}

func TestKV_GetSet(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = kv.Close() }()

			got, err := kv.Get(ctx, "user_profile")
			require.NoError(t, err)
			assert.Empty(t, got, "missing keys are absent, not errors")

			require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{
				"user_profile": json.RawMessage(`{"total_monthly_budget":500}`),
				"ledger":       json.RawMessage(`[]`),
			}))
			require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{
				"user_profile": json.RawMessage(`{"total_monthly_budget":650}`),
			}))

			got, err = kv.Get(ctx, "user_profile", "ledger", "categories")
			require.NoError(t, err)
			assert.Len(t, got, 2)
			assert.JSONEq(t, `{"total_monthly_budget":650}`, string(got["user_profile"]))
			assert.JSONEq(t, `[]`, string(got["ledger"]))
		})
	}
}

func TestKV_RejectsInvalidJSON(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		if name == "memory" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			defer func() { _ = kv.Close() }()
			err := kv.Set(ctx, map[string]json.RawMessage{"ledger": json.RawMessage(`{nope`)})
			assert.Error(t, err)
		})
	}
}

func TestKV_Subscribe(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = kv.Close() }()

			changes, cancel := kv.Subscribe()
			defer cancel()

			require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{
				"nessie_summary": json.RawMessage(`{}`),
				"user_profile":   json.RawMessage(`{}`),
			}))

			select {
			case c := <-changes:
				assert.Equal(t, []string{"nessie_summary", "user_profile"}, c.Keys)
				assert.Equal(t, AreaLocal, c.Area)
				assert.True(t, c.Touches("user_profile"))
				assert.False(t, c.Touches("ledger"))
			case <-time.After(time.Second):
				t.Fatal("no change delivered")
			}
		})
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	m := NewMemory()
	changes, cancel := m.Subscribe()
	cancel()
	cancel()

	_, open := <-changes
	assert.False(t, open)

	// writes after cancel do not panic
	require.NoError(t, m.Set(context.Background(), map[string]json.RawMessage{"a": json.RawMessage(`1`)}))
}

func TestSubscribe_SlowSubscriberDoesNotBlockWriter(t *testing.T) {
	m := NewMemory()
	_, cancel := m.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < changeBuffer*4; i++ {
			_ = m.Set(context.Background(), map[string]json.RawMessage{"a": json.RawMessage(`1`)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer blocked on a full subscriber")
	}
}

func TestSubscribe_DroppedChangesAreCountedAndLogged(t *testing.T) {
	var logs bytes.Buffer
	m := NewMemory()
	m.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	_, cancel := m.Subscribe()
	defer cancel()

	ctx := context.Background()
	for i := 0; i < changeBuffer+3; i++ {
		require.NoError(t, m.Set(ctx, map[string]json.RawMessage{"ledger": json.RawMessage(`[]`)}))
	}

	assert.Equal(t, int64(3), m.Dropped())
	assert.Equal(t, 3, strings.Count(logs.String(), "Dropped state change for slow subscriber"))
	assert.Contains(t, logs.String(), "keys=[ledger]")
}

func TestMemory_GetReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, map[string]json.RawMessage{"a": json.RawMessage(`"x"`)}))

	got, _ := m.Get(ctx, "a")
	got["a"][1] = 'y'

	again, _ := m.Get(ctx, "a")
	assert.Equal(t, `"x"`, string(again["a"]))
}

func TestMongo_WriteFailureSkipsNotify(t *testing.T) {
	coll := newFakeCollection()
	coll.bulkWriteFunc = func([]mongo.WriteModel) error { return errors.New("write conflict") }
	m := NewMongo(coll)

	changes, cancel := m.Subscribe()
	defer cancel()

	err := m.Set(context.Background(), map[string]json.RawMessage{"a": json.RawMessage(`1`)})
	require.Error(t, err)

	select {
	case c := <-changes:
		t.Fatalf("unexpected change %v", c)
	default:
	}
}
