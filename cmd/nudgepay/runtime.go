package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
	"github.com/eshaffer321/nudgepay-go/internal/bus"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/internal/store"
	"github.com/eshaffer321/nudgepay-go/internal/types"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
)

type closableKV interface {
	store.KV
	SetLogger(types.Logger)
	Close() error
}

// runtime is the wired application shared by the commands
type runtime struct {
	kv     closableKV
	state  *state.Store
	bus    *bus.Bus
	client *nessie.Client
	broker *broker.Broker

	stop context.CancelFunc
	done chan struct{}
}

func openStore(ctx context.Context) (closableKV, error) {
	switch driver := viper.GetString("store.driver"); driver {
	case "", "memory":
		return store.NewMemory(), nil
	case "sqlite":
		path := viper.GetString("store.path")
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			path = filepath.Join(home, ".config", "nudgepay", "nudgepay.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		return store.OpenSQLite(path)
	case "mongo":
		uri := viper.GetString("store.mongo_uri")
		if uri == "" {
			return nil, fmt.Errorf("store.mongo_uri is required for the mongo store")
		}
		return store.ConnectMongo(ctx, uri)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}

func newClient(logger types.Logger) (*nessie.Client, error) {
	opts := &nessie.ClientOptions{
		BaseURLs:  viper.GetStringSlice("nessie.base_urls"),
		Timeout:   viper.GetDuration("nessie.timeout"),
		Logger:    logger,
		SentryDSN: viper.GetString("sentry.dsn"),
		RetryConfig: &types.RetryConfig{
			MaxRetries: viper.GetInt("nessie.retries"),
			RetryWait:  500 * time.Millisecond,
			MaxWait:    2 * time.Second,
		},
	}
	return nessie.NewClient(opts)
}

// startRuntime opens the store, builds the gateway client and starts the
// broker. Callers must Close it.
func startRuntime(ctx context.Context) (*runtime, error) {
	logger := slog.Default()

	kv, err := openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	kv.SetLogger(logger)

	b, err := bus.New(bus.Config{
		Patterns: viper.GetStringSlice("bus.patterns"),
		Logger:   logger,
	})
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("invalid match pattern: %w", err)
	}

	client, err := newClient(logger)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to create Nessie client: %w", err)
	}

	rt := &runtime{
		kv:     kv,
		state:  state.New(kv),
		bus:    b,
		client: client,
		done:   make(chan struct{}),
	}
	rt.broker = broker.New(broker.Options{
		Gateway:   client,
		State:     rt.state,
		Publisher: b,
		Logger:    logger,
	})

	runCtx, stop := context.WithCancel(ctx)
	rt.stop = stop
	go func() {
		defer close(rt.done)
		_ = rt.broker.Run(runCtx)
	}()

	return rt, nil
}

// send builds a request and waits for the broker's reply
func (rt *runtime) send(ctx context.Context, msgType string, payload interface{}) (broker.Response, error) {
	req, err := broker.NewRequest(msgType, payload)
	if err != nil {
		return broker.Response{}, err
	}
	resp := rt.broker.Handle(ctx, req)
	if !resp.OK {
		return resp, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}

func (rt *runtime) Close() {
	rt.stop()
	<-rt.done
	rt.client.Close()
	if err := rt.kv.Close(); err != nil {
		slog.Warn("Failed to close store", "error", err)
	}
}
