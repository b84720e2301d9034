package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
	"github.com/eshaffer321/nudgepay-go/internal/bus"
	"github.com/eshaffer321/nudgepay-go/internal/extract"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/internal/store"
	"github.com/eshaffer321/nudgepay-go/internal/types"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
)

func main() {
	// stdout carries the protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// NUDGEPAY_STORE_PATH selects a SQLite file; otherwise state lives in memory
	var kv interface {
		store.KV
		SetLogger(types.Logger)
		Close() error
	}
	if path := os.Getenv("NUDGEPAY_STORE_PATH"); path != "" {
		db, err := store.OpenSQLite(path)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		kv = db
	} else {
		kv = store.NewMemory()
	}
	kv.SetLogger(logger)
	defer kv.Close()

	// Initialize Nessie client
	client, err := nessie.NewClient(&nessie.ClientOptions{
		Logger:    logger,
		SentryDSN: os.Getenv("NUDGEPAY_SENTRY_DSN"),
	})
	if err != nil {
		log.Fatalf("failed to initialize Nessie client: %v", err)
	}
	defer client.Close()

	b, err := bus.New(bus.Config{Logger: logger})
	if err != nil {
		log.Fatalf("failed to create bus: %v", err)
	}

	st := state.New(kv)
	brk := broker.New(broker.Options{
		Gateway:   client,
		State:     st,
		Publisher: b,
		Logger:    logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = brk.Run(ctx) }()

	// Credentials from the environment seed the stored config
	creds := nessie.Credentials{
		APIKey:     os.Getenv("NUDGEPAY_NESSIE_API_KEY"),
		AccountID:  os.Getenv("NUDGEPAY_NESSIE_ACCOUNT_ID"),
		CustomerID: os.Getenv("NUDGEPAY_NESSIE_CUSTOMER_ID"),
		MerchantID: os.Getenv("NUDGEPAY_NESSIE_MERCHANT_ID"),
	}
	if creds != (nessie.Credentials{}) {
		req, _ := broker.NewRequest(broker.TypeSetConfig, creds)
		if resp := brk.Handle(ctx, req); !resp.OK {
			log.Fatalf("failed to store Nessie config: %s", resp.Error)
		}
	}

	impl := &mcp.Implementation{
		Name:    "nudgepay",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	registerTools(server, &nudgepayTools{broker: brk, state: st, registry: extract.NewRegistry()})

	// Serve over stdio for desktop MCP clients
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.Error("server error", "error", err)
	}
}

func registerTools(server *mcp.Server, tools *nudgepayTools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_account_summary",
		Description: "Get the configured Nessie account's balance with deposits and purchases over the last 30 days. Requires apiKey and accountId to be configured.",
	}, tools.GetAccountSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "simulate_checkout",
		Description: "Simulate a checkout: posts a purchase to the Nessie sandbox, refreshes the account summary, records the spend in the ledger and lowers the remaining monthly budget. Requires apiKey, accountId and merchantId.",
	}, tools.SimulateCheckout)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_gateway_config",
		Description: "Update the Nessie API key and entity IDs. Fields left empty keep their stored values.",
	}, tools.SetGatewayConfig)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_demo_account",
		Description: "Create a demo customer with a funded checking account and a merchant, and make them the configured IDs. Requires apiKey.",
	}, tools.CreateDemoAccount)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "detect_total",
		Description: "Find the checkout total in an Amazon or Uber Eats checkout page. Returns the vendor and the detected amount, if any.",
	}, tools.DetectTotal)
}
