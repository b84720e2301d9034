// Package server exposes the broker and the broadcast bus over HTTP so that
// out-of-process pages and dashboards can use them.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
	"github.com/eshaffer321/nudgepay-go/internal/bus"
	"github.com/eshaffer321/nudgepay-go/internal/extract"
	"github.com/eshaffer321/nudgepay-go/internal/observer"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/internal/types"
)

const maxBody = 1 << 20

// Config controls the HTTP front
type Config struct {
	Addr         string
	StreamBuffer int
	Logger       types.Logger
}

// Handler answers raw broker messages
type Handler interface {
	HandleJSON(ctx context.Context, data []byte) broker.Response
}

// Status is served at /v1/status
type Status struct {
	StartedAt   time.Time `json:"started_at"`
	Subscribers int       `json:"subscriber_count"`
	Dropped     int64     `json:"dropped_count"`
	EventCount  int       `json:"event_count"`
}

// Service is the HTTP front
type Service struct {
	cfg       Config
	broker    Handler
	bus       *bus.Bus
	state     *state.Store
	registry  *extract.Registry
	startedAt time.Time
}

// New returns a service with defaults applied
func New(cfg Config, h Handler, b *bus.Bus, st *state.Store) *Service {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.StreamBuffer < 1 {
		cfg.StreamBuffer = 16
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	return &Service{
		cfg:       cfg,
		broker:    h,
		bus:       b,
		state:     st,
		registry:  extract.NewRegistry(),
		startedAt: time.Now(),
	}
}

// Handler returns the route table
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/messages", s.handleMessages)
	mux.HandleFunc("/v1/detect", s.handleDetect)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	return mux
}

// Run serves until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.cfg.Logger.Info("HTTP server listening", "addr", s.cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return errors.Wrap(err, "nudgepay http server")
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	subs, dropped := s.bus.Stats()
	writeJSON(w, http.StatusOK, Status{
		StartedAt:   s.startedAt,
		Subscribers: subs,
		Dropped:     dropped,
		EventCount:  len(s.bus.Events()),
	})
}

func (s *Service) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	resp := s.broker.HandleJSON(r.Context(), body)
	writeJSON(w, http.StatusOK, resp)
}

// handleDetect runs the extractor against posted page markup
func (s *Service) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	agent := observer.New(observer.Options{
		Page:     observer.NewStaticPage(pageURL, string(body)),
		State:    s.state,
		Registry: s.registry,
		Logger:   s.cfg.Logger,
	})
	writeJSON(w, http.StatusOK, agent.DetectTotal())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bus.Events())
}

// handleStream relays broadcasts for ?url= as server-sent events. Without a
// url every broadcast is relayed.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	pageURL := r.URL.Query().Get("url")
	var sub *bus.Subscription
	if pageURL == "" {
		sub = s.bus.SubscribeAll(s.cfg.StreamBuffer)
	} else {
		sub = s.bus.Subscribe(pageURL, s.cfg.StreamBuffer)
	}
	defer sub.Close()

	s.cfg.Logger.Debug("Stream opened", "subscriber", sub.ID, "url", pageURL)

	writeSSE(w, "ready", map[string]interface{}{
		"subscriber": sub.ID,
		"url":        pageURL,
		"matched":    pageURL == "" || s.bus.Matches(pageURL),
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			writeSSE(w, ev.Type, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
