package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eshaffer321/nudgepay-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadURL returns the address of a server that is no longer listening
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func TestGateway_FailsOverOnUnreachableEndpoint(t *testing.T) {
	var gotKey string
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		assert.Equal(t, "/accounts/acc-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"_id":"acc-1","balance":120.5}`))
	}))
	defer live.Close()

	gw := NewGateway(&Options{BaseURLs: []string{deadURL(t), live.URL}})

	var result struct {
		ID      string  `json:"_id"`
		Balance float64 `json:"balance"`
	}
	err := gw.Do(context.Background(), http.MethodGet, "/accounts/acc-1", "secret key", nil, &result)

	require.NoError(t, err)
	assert.Equal(t, "acc-1", result.ID)
	assert.Equal(t, 120.5, result.Balance)
	assert.Equal(t, "secret key", gotKey)
}

func TestGateway_RejectionIsDefinitive(t *testing.T) {
	var secondCalls int32
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"message":"Account not found"}`))
	}))
	defer rejecting.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&secondCalls, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer second.Close()

	gw := NewGateway(&Options{BaseURLs: []string{rejecting.URL, second.URL}})
	err := gw.Do(context.Background(), http.MethodGet, "/accounts/missing", "k", nil, nil)

	require.Error(t, err)
	assert.True(t, types.IsRejected(err))
	assert.False(t, types.IsRetryable(err))
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.Contains(t, err.Error(), "Nessie error: 404")
	assert.Contains(t, err.Error(), "Account not found")
	assert.Equal(t, int32(0), atomic.LoadInt32(&secondCalls))
}

func TestGateway_MalformedJSONTriesNextEndpoint(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer broken.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"amount":5}]`))
	}))
	defer good.Close()

	gw := NewGateway(&Options{BaseURLs: []string{broken.URL, good.URL}})

	var items []map[string]interface{}
	require.NoError(t, gw.Do(context.Background(), http.MethodGet, "/accounts/a/purchases", "k", nil, &items))
	assert.Len(t, items, 1)
}

func TestGateway_AllUnreachableReturnsLastError(t *testing.T) {
	first, last := deadURL(t), deadURL(t)
	gw := NewGateway(&Options{BaseURLs: []string{first, last}})

	err := gw.Do(context.Background(), http.MethodGet, "/customers", "k", nil, nil)

	require.Error(t, err)
	var unreachable *types.UnreachableError
	require.True(t, errors.As(err, &unreachable))
	assert.Equal(t, last, unreachable.Endpoint)
	assert.Contains(t, err.Error(), "Nessie unreachable")
}

func TestGateway_PostsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "merchant-1", body["merchant_id"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"objectCreated":{"_id":"p-1"}}`))
	}))
	defer srv.Close()

	gw := NewGateway(&Options{BaseURLs: []string{srv.URL}})

	var raw json.RawMessage
	err := gw.Do(context.Background(), http.MethodPost, "/accounts/a/purchases", "k",
		map[string]interface{}{"merchant_id": "merchant-1"}, &raw)

	require.NoError(t, err)
	assert.Contains(t, string(raw), "p-1")
}

func TestGateway_RetriesConnectionErrorsOnly(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := NewGateway(&Options{
		BaseURLs:    []string{srv.URL},
		RetryConfig: &types.RetryConfig{MaxRetries: 3, RetryWait: time.Millisecond, MaxWait: time.Millisecond},
	})

	err := gw.Do(context.Background(), http.MethodGet, "/accounts/a", "k", nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrServerError))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "HTTP statuses must not be retried")
}

func TestGateway_NoEndpoints(t *testing.T) {
	gw := &Gateway{}
	err := gw.Do(context.Background(), http.MethodGet, "/x", "k", nil, nil)
	assert.ErrorIs(t, err, types.ErrNoEndpoints)
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://h/accounts?key=a%2Bb", buildURL("https://h", "/accounts", "a+b"))
	assert.Equal(t, "https://h/accounts?type=x&key=k", buildURL("https://h", "/accounts?type=x", "k"))
}

func TestHandleHTTPError_IncludesStatusDescription(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		expectedDesc string
		sentinel     error
	}{
		{"401 Unauthorized", 401, "Unauthorized", types.ErrNotAuthenticated},
		{"429 Too Many Requests", 429, "Too Many Requests", types.ErrRateLimited},
		{"502 Bad Gateway", 502, "Bad Gateway", types.ErrServerError},
		{"525 SSL Handshake Failed", 525, "SSL Handshake Failed", types.ErrServerError},
		{"400 Bad Request", 400, "Bad Request", types.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleHTTPError("https://h", tt.statusCode, []byte(`error page`))

			assert.Contains(t, err.Error(), tt.expectedDesc)
			assert.Contains(t, err.Error(), "error page")
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestGateway_Hooks(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer live.Close()

	var requests, responses, failures int32
	hooks := &types.Hooks{
		OnRequest: func(_ context.Context, req *http.Request) {
			atomic.AddInt32(&requests, 1)
			assert.Equal(t, types.UserAgent, req.Header.Get("User-Agent"))
		},
		OnResponse: func(_ context.Context, resp *http.Response, _ time.Duration) {
			atomic.AddInt32(&responses, 1)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		},
		OnError: func(_ context.Context, _ error) {
			atomic.AddInt32(&failures, 1)
		},
	}

	gw := NewGateway(&Options{BaseURLs: []string{deadURL(t), live.URL}, Hooks: hooks})
	require.NoError(t, gw.Do(context.Background(), http.MethodPost, "/merchants", "k", map[string]string{"name": "Shop"}, nil))

	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Equal(t, int32(1), atomic.LoadInt32(&responses))
	assert.Equal(t, int32(1), atomic.LoadInt32(&failures))
}
