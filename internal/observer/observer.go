// Package observer watches one checkout page. It re-reads the total whenever
// the page changes and keeps an overlay indicator in step with the budget.
package observer

import (
	"context"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/nudgepay-go/internal/budget"
	"github.com/eshaffer321/nudgepay-go/internal/bus"
	"github.com/eshaffer321/nudgepay-go/internal/extract"
	"github.com/eshaffer321/nudgepay-go/internal/money"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/internal/types"
)

// State of an agent
type State int

const (
	// Idle means no total has been detected yet
	Idle State = iota
	// Tracking means a total is cached and the indicator is shown
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "idle"
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Indicator is what the overlay displays
type Indicator struct {
	Vendor    string          `json:"vendor"`
	Total     decimal.Decimal `json:"total"`
	Budget    decimal.Decimal `json:"budget"`
	Predicted decimal.Decimal `json:"predicted"`
	State     State           `json:"state"`
}

// Page is the document being observed
type Page interface {
	URL() string
	Snapshot() (*goquery.Document, error)
}

// Overlay displays an indicator on the page
type Overlay interface {
	Render(Indicator)
}

// OverlayFunc adapts a function to Overlay
type OverlayFunc func(Indicator)

// Render calls f
func (f OverlayFunc) Render(ind Indicator) {
	f(ind)
}

// Broadcasts is the part of the bus an agent listens on
type Broadcasts interface {
	Subscribe(pageURL string, buffer int) *bus.Subscription
}

// Options configures an Agent
type Options struct {
	Page     Page
	Overlay  Overlay
	State    *state.Store
	Bus      Broadcasts
	Registry *extract.Registry
	Logger   types.Logger
	Buffer   int
}

// Agent is attached to exactly one page
type Agent struct {
	page      Page
	overlay   Overlay
	state     *state.Store
	bus       Broadcasts
	profile   extract.Profile
	supported bool
	logger    types.Logger
	buffer    int

	mutations chan struct{}

	mu      sync.Mutex
	vendor  string
	total   *decimal.Decimal
	current Indicator
}

// New creates an agent for opts.Page. Pages without a vendor profile never
// detect a total.
func New(opts Options) *Agent {
	if opts.Registry == nil {
		opts.Registry = extract.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = types.NopLogger{}
	}
	if opts.Overlay == nil {
		opts.Overlay = OverlayFunc(func(Indicator) {})
	}
	if opts.Buffer < 1 {
		opts.Buffer = 8
	}

	profile, ok := opts.Registry.Lookup(opts.Page.URL())
	return &Agent{
		page:      opts.Page,
		overlay:   opts.Overlay,
		state:     opts.State,
		bus:       opts.Bus,
		profile:   profile,
		supported: ok,
		logger:    opts.Logger,
		buffer:    opts.Buffer,
		mutations: make(chan struct{}, 1),
	}
}

// Mutated records that the page changed. Bursts collapse into one
// extraction.
func (a *Agent) Mutated() {
	select {
	case a.mutations <- struct{}{}:
	default:
	}
}

// DetectTotal runs a fresh extraction against the current page
func (a *Agent) DetectTotal() extract.DetectedTotal {
	if !a.supported {
		return extract.DetectedTotal{}
	}
	doc, err := a.page.Snapshot()
	if err != nil {
		a.logger.Warn("Page snapshot failed", "url", a.page.URL(), "error", err)
		return extract.DetectedTotal{Vendor: a.profile.Vendor}
	}
	return a.profile.Extract(doc)
}

// Current returns the last rendered indicator, if any
func (a *Agent) Current() (Indicator, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.total != nil
}

// Run attaches to the page and reacts to page, budget and broadcast events
// until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	changes, unsubscribe := a.state.Subscribe()
	defer unsubscribe()

	var broadcasts <-chan bus.Event
	if a.bus != nil {
		sub := a.bus.Subscribe(a.page.URL(), a.buffer)
		defer sub.Close()
		broadcasts = sub.C
	}

	a.logger.Debug("Observer attached", "url", a.page.URL(), "supported", a.supported)
	a.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.mutations:
			a.refresh(ctx)
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if change.Touches(state.KeyUserProfile, state.KeyNessieSummary) {
				a.redisplay(ctx)
			}
		case ev, ok := <-broadcasts:
			if !ok {
				broadcasts = nil
				continue
			}
			a.logger.Debug("Broadcast received", "url", a.page.URL(), "event", ev.Type)
			a.redisplay(ctx)
		}
	}
}

// refresh re-extracts and re-renders when the total changed. A page that
// momentarily shows no total keeps the previous one.
func (a *Agent) refresh(ctx context.Context) {
	detected := a.DetectTotal()
	if !detected.Found() {
		return
	}

	a.mu.Lock()
	unchanged := a.total != nil && a.total.Equal(*detected.Amount)
	if !unchanged {
		a.total = detected.Amount
		a.vendor = detected.Vendor
	}
	a.mu.Unlock()

	if unchanged {
		return
	}
	a.redisplay(ctx)
}

func (a *Agent) redisplay(ctx context.Context) {
	a.mu.Lock()
	total, vendor := a.total, a.vendor
	a.mu.Unlock()
	if total == nil {
		return
	}

	snap, err := a.state.Snapshot(ctx)
	if err != nil {
		a.logger.Warn("Failed to read budget", "url", a.page.URL(), "error", err)
		return
	}

	available := budget.DisplayBudget(snap.Profile, snap.Summary)
	ind := Indicator{
		Vendor:    vendor,
		Total:     *total,
		Budget:    available,
		Predicted: money.Round(available.Sub(*total)),
		State:     Tracking,
	}

	a.mu.Lock()
	a.current = ind
	a.mu.Unlock()

	a.overlay.Render(ind)
}
