// Package store is the key-value capability behind persisted state: get and
// set of named JSON values plus a change feed.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/eshaffer321/nudgepay-go/internal/types"
)

// AreaLocal is the only storage area
const AreaLocal = "local"

// changeBuffer is the per-subscriber channel capacity
const changeBuffer = 16

// Change is delivered to subscribers after a successful write
type Change struct {
	Keys []string `json:"keys"`
	Area string   `json:"area"`
}

// Touches reports whether any of keys changed
func (c Change) Touches(keys ...string) bool {
	for _, changed := range c.Keys {
		for _, k := range keys {
			if changed == k {
				return true
			}
		}
	}
	return false
}

// KV stores JSON values by key. Missing keys are simply absent from Get's
// result; they are never an error.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]json.RawMessage) error
	Subscribe() (<-chan Change, func())
}

// notifier fans changes out to subscribers without blocking the writer
type notifier struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan Change
	logger  types.Logger
	dropped int64
}

// SetLogger sets where dropped change notifications are reported
func (n *notifier) SetLogger(logger types.Logger) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logger = logger
}

// Dropped counts change notifications discarded for full subscribers
func (n *notifier) Dropped() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}

func (n *notifier) Subscribe() (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]chan Change)
	}
	id := n.nextID
	n.nextID++
	ch := make(chan Change, changeBuffer)
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if sub, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(sub)
			}
		})
	}
}

func (n *notifier) notify(values map[string]json.RawMessage) {
	if len(values) == 0 {
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		select {
		case ch <- Change{Keys: keys, Area: AreaLocal}:
		default:
			n.dropped++
			if n.logger != nil {
				n.logger.Warn("Dropped state change for slow subscriber", "subscriber", id, "keys", keys)
			}
		}
	}
}

// Memory is an in-process KV
type Memory struct {
	notifier
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string]json.RawMessage)}
}

// Get returns copies of the stored values for keys that exist
func (m *Memory) Get(_ context.Context, keys ...string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

// Set stores every value then notifies subscribers once
func (m *Memory) Set(_ context.Context, values map[string]json.RawMessage) error {
	m.mu.Lock()
	for k, v := range values {
		m.data[k] = append(json.RawMessage(nil), v...)
	}
	m.mu.Unlock()

	m.notify(values)
	return nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
