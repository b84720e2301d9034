package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eshaffer321/nudgepay-go/internal/types"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	contentType = "application/json"

	// maxErrorBody caps how much of a rejection body ends up in the error message
	maxErrorBody = 512
)

// Gateway performs authenticated JSON calls against the Nessie API, failing
// over across an ordered list of base URLs.
type Gateway struct {
	baseURLs    []string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	headers     map[string]string
	logger      types.Logger
	hooks       *types.Hooks
}

// Options for the gateway transport
type Options struct {
	BaseURLs    []string
	HTTPClient  *http.Client
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	Logger      types.Logger
	Hooks       *types.Hooks
}

// NewGateway creates a new gateway transport
func NewGateway(opts *Options) *Gateway {
	if opts == nil {
		opts = &Options{}
	}

	baseURLs := opts.BaseURLs
	if len(baseURLs) == 0 {
		baseURLs = types.DefaultBaseURLs
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: types.DefaultTimeout,
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}

	// Per-endpoint retries only make sense for connection failures; a status
	// code means the server answered and must surface unchanged.
	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil && opts.RetryConfig.MaxRetries > 0 {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		retryClient.CheckRetry = retryConnectionErrors
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
		retryClient.Logger = &retryLogger{logger: logger}
	}

	headers := map[string]string{
		"Accept":       contentType,
		"Content-Type": contentType,
		"User-Agent":   types.UserAgent,
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	trimmed := make([]string, 0, len(baseURLs))
	for _, u := range baseURLs {
		trimmed = append(trimmed, strings.TrimRight(u, "/"))
	}

	return &Gateway{
		baseURLs:    trimmed,
		httpClient:  opts.HTTPClient,
		retryClient: retryClient,
		headers:     headers,
		logger:      logger,
		hooks:       opts.Hooks,
	}
}

// BaseURLs returns the endpoints in the order they are tried
func (g *Gateway) BaseURLs() []string {
	out := make([]string, len(g.baseURLs))
	copy(out, g.baseURLs)
	return out
}

// Do issues method+path against each endpoint in turn until one answers.
// A non-2xx answer stops the walk with a *types.RejectedError; transport
// failures move on to the next endpoint and the last one is returned when
// all are exhausted. result may be nil.
func (g *Gateway) Do(ctx context.Context, method, path, apiKey string, body, result interface{}) error {
	if len(g.baseURLs) == 0 {
		return types.ErrNoEndpoints
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
	}

	var lastErr error
	for _, base := range g.baseURLs {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return errors.Wrap(err, "request aborted")
		}

		err := g.attempt(ctx, method, base, path, apiKey, payload, result)
		if err == nil {
			return nil
		}
		if !types.IsRetryable(err) {
			return err
		}

		g.logger.Warn("Nessie endpoint unreachable, trying next", "endpoint", base, "path", path, "error", err)
		lastErr = err
	}

	return lastErr
}

func (g *Gateway) attempt(ctx context.Context, method, base, path, apiKey string, payload []byte, result interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, buildURL(base, path, apiKey), reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	for k, v := range g.headers {
		httpReq.Header.Set(k, v)
	}

	if g.hooks != nil && g.hooks.OnRequest != nil {
		g.hooks.OnRequest(ctx, httpReq)
	}

	g.logger.Debug("Nessie request", "method", method, "endpoint", base, "path", path)

	start := time.Now()
	resp, err := g.doRequest(httpReq)
	duration := time.Since(start)

	if err != nil {
		if g.hooks != nil && g.hooks.OnError != nil {
			g.hooks.OnError(ctx, err)
		}
		return &types.UnreachableError{Endpoint: base, Err: err}
	}
	defer resp.Body.Close()

	if g.hooks != nil && g.hooks.OnResponse != nil {
		g.hooks.OnResponse(ctx, resp, duration)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.UnreachableError{Endpoint: base, Err: errors.Wrap(err, "failed to read response")}
	}

	g.logger.Debug("Nessie response", "status", resp.StatusCode, "duration", duration, "size", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleHTTPError(base, resp.StatusCode, respBody)
	}

	if !json.Valid(respBody) {
		return &types.UnreachableError{Endpoint: base, Err: errors.New("malformed JSON response")}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return errors.Wrap(err, "failed to unmarshal result")
		}
	}

	return nil
}

// doRequest executes the HTTP request with retry if configured
func (g *Gateway) doRequest(req *http.Request) (*http.Response, error) {
	if g.retryClient != nil {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return g.retryClient.Do(retryReq)
	}
	return g.httpClient.Do(req)
}

// handleHTTPError maps a rejection to a typed error carrying a sentinel
func handleHTTPError(endpoint string, statusCode int, body []byte) error {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}

	rejected := &types.RejectedError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Body:       text,
	}

	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		rejected.Err = types.ErrNotAuthenticated
	case statusCode == http.StatusNotFound:
		rejected.Err = types.ErrNotFound
	case statusCode == http.StatusTooManyRequests:
		rejected.Err = types.ErrRateLimited
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		rejected.Err = types.ErrTimeout
	case statusCode >= 500:
		rejected.Err = types.ErrServerError
	default:
		rejected.Err = types.ErrBadRequest
	}

	return rejected
}

func buildURL(base, path, apiKey string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return base + path + sep + "key=" + url.QueryEscape(apiKey)
}

// retryConnectionErrors retries only when no response came back at all
func retryConnectionErrors(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
