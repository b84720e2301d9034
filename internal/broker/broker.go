// Package broker is the single writer for persisted budget state. It
// validates requests, calls the account gateway, reconciles the cached
// summary and ledger, and broadcasts results.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eshaffer321/nudgepay-go/internal/bus"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/internal/types"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrStopped is returned by Handle once Run has exited
var ErrStopped = errors.New("broker stopped")

// Gateway is the account API the broker drives
type Gateway interface {
	FetchAccountSummary(ctx context.Context, creds nessie.Credentials) (*nessie.AccountSummary, error)
	CreatePurchase(ctx context.Context, creds nessie.Credentials, amount decimal.Decimal, description string) (json.RawMessage, error)
	CreateDemoAccount(ctx context.Context, apiKey string) (*nessie.DemoAccount, error)
}

// Publisher broadcasts to observers
type Publisher interface {
	Publish(ev bus.Event) bus.Event
}

// Options configures a Broker
type Options struct {
	Gateway   Gateway
	State     *state.Store
	Publisher Publisher
	Logger    types.Logger
	Now       func() time.Time
	QueueSize int
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Broker serialises every request through one goroutine
type Broker struct {
	gateway   Gateway
	state     *state.Store
	publisher Publisher
	logger    types.Logger
	now       func() time.Time

	queue chan job
	done  chan struct{}
}

// New creates a broker. Call Run before Handle.
func New(opts Options) *Broker {
	if opts.Logger == nil {
		opts.Logger = types.NopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 32
	}
	return &Broker{
		gateway:   opts.Gateway,
		state:     opts.State,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Now,
		queue:     make(chan job, opts.QueueSize),
		done:      make(chan struct{}),
	}
}

// Run processes requests one at a time until ctx is cancelled
func (b *Broker) Run(ctx context.Context) error {
	defer close(b.done)
	b.logger.Info("Broker started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Broker stopped")
			return nil
		case j := <-b.queue:
			// A started request runs to completion even if its caller goes away
			j.reply <- b.dispatch(context.WithoutCancel(j.ctx), j.req)
		}
	}
}

// Handle enqueues req and waits for its response. Cancelling ctx stops the
// wait, not a request that has already started.
func (b *Broker) Handle(ctx context.Context, req Request) Response {
	j := job{ctx: ctx, req: req, reply: make(chan Response, 1)}

	select {
	case b.queue <- j:
	case <-b.done:
		return Failure(ErrStopped.Error())
	case <-ctx.Done():
		return Failure(ctx.Err().Error())
	}

	select {
	case resp := <-j.reply:
		return resp
	case <-b.done:
		return Failure(ErrStopped.Error())
	case <-ctx.Done():
		return Failure(ctx.Err().Error())
	}
}

// HandleJSON decodes a raw message and handles it
func (b *Broker) HandleJSON(ctx context.Context, data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Failure(fmt.Sprintf("Invalid message: %v", err))
	}
	return b.Handle(ctx, req)
}

func (b *Broker) dispatch(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic handling %s: %v", req.Type, r)
			b.logger.Error("Recovered broker panic", "type", req.Type, "panic", r)
			b.report(ctx, req.Type, err)
			resp = Failure(err.Error())
		}
	}()

	if req.Type == "" {
		return Failure(ErrMissingType)
	}

	start := b.now()
	switch req.Type {
	case TypeSetData:
		resp = b.setRawProfile(ctx, req.Payload)
	case TypeSetConfig:
		resp = b.setGatewayConfig(ctx, req.Payload)
	case TypeGetSummary:
		resp = b.getAccountSummary(ctx)
	case TypeCheckout:
		resp = b.simulateCheckout(ctx, req.Payload)
	case TypeCreateDemo:
		resp = b.createDemoAccount(ctx)
	case TypeRecomputeBudget:
		resp = b.recomputeBudget(ctx)
	default:
		return Failure(ErrUnknownType)
	}

	if resp.OK {
		b.logger.Debug("Handled request", "type", req.Type, "duration", b.now().Sub(start))
	} else {
		b.logger.Warn("Request failed", "type", req.Type, "error", resp.Error)
	}
	return resp
}

// gatewayFailure reports err and surfaces the gateway's own message
func (b *Broker) gatewayFailure(ctx context.Context, reqType string, err error) Response {
	b.report(ctx, reqType, err)
	return Failure(errors.Cause(err).Error())
}

func (b *Broker) report(ctx context.Context, reqType string, err error) {
	capture := func(hub *sentry.Hub) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("nudgepay.request", reqType)
			hub.CaptureException(err)
		})
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		capture(hub)
		return
	}
	capture(sentry.CurrentHub())
}

func (b *Broker) publish(ev bus.Event) {
	if b.publisher == nil {
		return
	}
	sent := b.publisher.Publish(ev)
	b.logger.Debug("Broadcast event", "id", sent.ID, "type", sent.Type)
}
