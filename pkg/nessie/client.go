package nessie

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eshaffer321/nudgepay-go/internal/templates"
	"github.com/eshaffer321/nudgepay-go/internal/transport"
	internalTypes "github.com/eshaffer321/nudgepay-go/internal/types"
	"github.com/getsentry/sentry-go"
	"github.com/shopspring/decimal"
)

// DefaultTimeout is the default HTTP client timeout
const DefaultTimeout = internalTypes.DefaultTimeout

// Client is the Nessie sandbox API client
type Client struct {
	// Service interfaces
	Accounts  AccountService
	Purchases PurchaseService
	Demo      DemoService

	// Internal fields
	transport Transport
	options   *ClientOptions
	payloads  *templates.Loader
	now       func() time.Time
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURLs overrides the default endpoint list, tried in order
	BaseURLs []string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// Logger for debug logging
	Logger Logger

	// RetryConfig configures per-endpoint connection retries
	RetryConfig *internalTypes.RetryConfig

	// Hooks for observability
	Hooks *internalTypes.Hooks

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// Logger interface for logging
type Logger = internalTypes.Logger

// Transport performs one JSON call with endpoint failover
type Transport interface {
	Do(ctx context.Context, method, path, apiKey string, body, result interface{}) error
}

// NewClient creates a new Nessie client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}
		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}
		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}
		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		if err := sentry.Init(sentryOpts); err != nil {
			// Log error but don't fail client creation
			if opts.Logger != nil {
				opts.Logger.Error("Failed to initialize Sentry", "error", err)
			}
		}
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	if opts.Logger == nil {
		opts.Logger = internalTypes.NopLogger{}
	}

	trans := transport.NewGateway(&transport.Options{
		BaseURLs:    opts.BaseURLs,
		HTTPClient:  opts.HTTPClient,
		RetryConfig: opts.RetryConfig,
		Logger:      opts.Logger,
		Hooks:       opts.Hooks,
	})

	return newClient(trans, opts), nil
}

// NewClientWithTransport builds a client over an existing transport
func NewClientWithTransport(t Transport, opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}
	if opts.Logger == nil {
		opts.Logger = internalTypes.NopLogger{}
	}
	return newClient(t, opts)
}

func newClient(t Transport, opts *ClientOptions) *Client {
	c := &Client{
		transport: t,
		options:   opts,
		payloads:  templates.NewLoader(),
		now:       time.Now,
	}
	c.initServices()
	return c
}

func (c *Client) initServices() {
	c.Accounts = &accountService{client: c}
	c.Purchases = &purchaseService{client: c}
	c.Demo = &demoService{client: c}
}

// FetchAccountSummary loads the account, its purchases and its deposits and
// folds them into a summary
func (c *Client) FetchAccountSummary(ctx context.Context, creds Credentials) (*AccountSummary, error) {
	return c.Accounts.Summary(ctx, creds)
}

// CreatePurchase records a purchase against the configured merchant
func (c *Client) CreatePurchase(ctx context.Context, creds Credentials, amount decimal.Decimal, description string) (json.RawMessage, error) {
	return c.Purchases.Create(ctx, creds, amount, description)
}

// CreateDemoAccount provisions a customer, a checking account and a merchant
func (c *Client) CreateDemoAccount(ctx context.Context, apiKey string) (*DemoAccount, error) {
	return c.Demo.Provision(ctx, apiKey)
}

// call runs one request through the transport and reports failures
func (c *Client) call(ctx context.Context, operation, method, path, apiKey string, body, result interface{}) error {
	start := time.Now()
	err := c.transport.Do(ctx, method, path, apiKey, body, result)
	duration := time.Since(start)

	if err != nil {
		capture := func(hub *sentry.Hub) {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("nessie.operation", operation)
				scope.SetContext("nessie", map[string]interface{}{
					"method":   method,
					"path":     path,
					"duration": duration.String(),
				})
				hub.CaptureException(err)
			})
		}
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			capture(hub)
		} else {
			capture(sentry.CurrentHub())
		}
		c.options.Logger.Debug("Nessie call failed", "operation", operation, "path", path, "error", err)
	}

	return err
}

// Close flushes any pending Sentry events and performs cleanup
func (c *Client) Close() {
	sentry.Flush(2 * time.Second)
}
