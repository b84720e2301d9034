// Package bus delivers broker broadcasts to page observers and other
// listeners. Publishing never blocks; a listener with a full buffer misses
// the event.
package bus

import (
	"sync"
	"time"

	"github.com/eshaffer321/nudgepay-go/internal/types"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventSummaryUpdated    = "summary-updated"
	EventPurchaseCompleted = "purchase-completed"
)

// DefaultPatterns are the checkout sites page observers run on
var DefaultPatterns = []string{
	"*://*.amazon.com/*",
	"*://*.ubereats.com/*",
}

// Event is one broadcast
type Event struct {
	ID        int64                  `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Summary   *nessie.AccountSummary `json:"summary,omitempty"`
	Amount    *decimal.Decimal       `json:"amount,omitempty"`
	Vendor    string                 `json:"vendor,omitempty"`
	Category  string                 `json:"category,omitempty"`
}

// Config controls the bus
type Config struct {
	Patterns     []string
	EventsBuffer int
	Logger       types.Logger
}

// Bus is the subscriber registry
type Bus struct {
	patterns []*Pattern
	logger   types.Logger
	buffer   int

	mu          sync.RWMutex
	nextEventID int64
	events      []Event
	nextSubID   int
	subs        map[int]*Subscription
	dropped     int64
}

// Subscription receives events on C until Close
type Subscription struct {
	ID  int
	URL string
	C   <-chan Event

	ch  chan Event
	all bool
	bus *Bus
}

// Close unregisters the subscription and closes C
func (s *Subscription) Close() {
	s.bus.remove(s.ID)
}

// New compiles the match patterns and returns an empty bus
func New(cfg Config) (*Bus, error) {
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultPatterns
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}

	patterns := make([]*Pattern, 0, len(cfg.Patterns))
	for _, raw := range cfg.Patterns {
		p, err := CompilePattern(raw)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}

	return &Bus{
		patterns: patterns,
		logger:   cfg.Logger,
		buffer:   cfg.EventsBuffer,
		subs:     make(map[int]*Subscription),
	}, nil
}

// Matches reports whether pageURL is covered by any match pattern
func (b *Bus) Matches(pageURL string) bool {
	for _, p := range b.patterns {
		if p.Match(pageURL) {
			return true
		}
	}
	return false
}

// Subscribe registers a page observer. Pages outside the match patterns get
// a subscription that never receives anything.
func (b *Bus) Subscribe(pageURL string, buffer int) *Subscription {
	return b.add(pageURL, buffer, false)
}

// SubscribeAll registers a listener that receives every event regardless of
// URL, such as the dashboard
func (b *Bus) SubscribeAll(buffer int) *Subscription {
	return b.add("", buffer, true)
}

func (b *Bus) add(pageURL string, buffer int, all bool) *Subscription {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	sub := &Subscription{
		ID:  b.nextSubID,
		URL: pageURL,
		C:   ch,
		ch:  ch,
		all: all,
		bus: b,
	}
	if !all && !b.Matches(pageURL) {
		b.logger.Debug("Page outside match patterns, no broadcasts", "url", pageURL)
	}
	b.subs[sub.ID] = sub
	return sub
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish stamps ev with the next ID and the current time, records it and
// delivers it to every matching subscriber. It returns the stamped event.
func (b *Bus) Publish(ev Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextEventID++
	ev.ID = b.nextEventID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.events = append(b.events, ev)
	if len(b.events) > b.buffer {
		b.events = b.events[len(b.events)-b.buffer:]
	}

	for _, sub := range b.subs {
		if !sub.all && !b.Matches(sub.URL) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.dropped++
			b.logger.Warn("Dropped broadcast for slow subscriber", "subscriber", sub.ID, "url", sub.URL, "event", ev.Type)
		}
	}
	return ev
}

// Events returns the retained recent events, oldest first
func (b *Bus) Events() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := make([]Event, len(b.events))
	copy(events, b.events)
	return events
}

// Stats reports subscriber and drop counts
func (b *Bus) Stats() (subscribers int, dropped int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs), b.dropped
}
