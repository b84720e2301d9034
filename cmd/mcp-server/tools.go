package main

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
	"github.com/eshaffer321/nudgepay-go/internal/extract"
	"github.com/eshaffer321/nudgepay-go/internal/money"
	"github.com/eshaffer321/nudgepay-go/internal/observer"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
)

// Handler sends requests to the broker
type Handler interface {
	Handle(ctx context.Context, req broker.Request) broker.Response
}

// nudgepayTools holds the broker and implements all tool handlers
type nudgepayTools struct {
	broker   Handler
	state    *state.Store
	registry *extract.Registry
}

func (t *nudgepayTools) send(ctx context.Context, msgType string, payload interface{}) (broker.Response, error) {
	req, err := broker.NewRequest(msgType, payload)
	if err != nil {
		return broker.Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	resp := t.broker.Handle(ctx, req)
	if !resp.OK {
		return resp, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}

// AccountSummaryOutput is an account snapshot
type AccountSummaryOutput struct {
	AccountName  string  `json:"accountName" jsonschema:"Account nickname or name"`
	AccountType  string  `json:"accountType" jsonschema:"Account type (e.g. Checking)"`
	Balance      float64 `json:"balance" jsonschema:"Current balance in dollars"`
	IncomeLast30 float64 `json:"incomeLast30" jsonschema:"Deposits over the last 30 days"`
	SpendLast30  float64 `json:"spendLast30" jsonschema:"Purchases over the last 30 days"`
}

func summaryOutput(s *nessie.AccountSummary) AccountSummaryOutput {
	if s == nil {
		return AccountSummaryOutput{}
	}
	return AccountSummaryOutput{
		AccountName:  s.AccountName,
		AccountType:  s.AccountType,
		Balance:      s.Balance.InexactFloat64(),
		IncomeLast30: s.IncomeLast30.InexactFloat64(),
		SpendLast30:  s.SpendLast30.InexactFloat64(),
	}
}

// GetAccountSummary tool - fetches the configured account's balance and activity
type GetAccountSummaryInput struct{}

func (t *nudgepayTools) GetAccountSummary(ctx context.Context, req *mcp.CallToolRequest, input GetAccountSummaryInput) (*mcp.CallToolResult, AccountSummaryOutput, error) {
	resp, err := t.send(ctx, broker.TypeGetSummary, nil)
	if err != nil {
		return nil, AccountSummaryOutput{}, fmt.Errorf("failed to fetch account summary: %w", err)
	}
	return nil, summaryOutput(resp.Summary), nil
}

// SimulateCheckout tool - posts a purchase and records it against the budget
type SimulateCheckoutInput struct {
	Amount float64 `json:"amount" jsonschema:"Purchase amount in dollars, greater than 0"`
	Vendor string  `json:"vendor,omitempty" jsonschema:"Vendor name (optional, e.g. Amazon)"`
}

type SimulateCheckoutOutput struct {
	PurchaseID string               `json:"purchaseId,omitempty" jsonschema:"ID of the created sandbox purchase"`
	Summary    AccountSummaryOutput `json:"summary" jsonschema:"Account summary after the purchase"`
}

func (t *nudgepayTools) SimulateCheckout(ctx context.Context, req *mcp.CallToolRequest, input SimulateCheckoutInput) (*mcp.CallToolResult, SimulateCheckoutOutput, error) {
	resp, err := t.send(ctx, broker.TypeCheckout, broker.CheckoutPayload{
		Amount: money.FromFloat(input.Amount),
		Vendor: input.Vendor,
	})
	if err != nil {
		return nil, SimulateCheckoutOutput{}, fmt.Errorf("checkout failed: %w", err)
	}

	out := SimulateCheckoutOutput{Summary: summaryOutput(resp.Summary)}
	if id, ok := nessie.ExtractID(resp.Purchase); ok {
		out.PurchaseID = id
	}
	return nil, out, nil
}

// SetGatewayConfig tool - updates Nessie credentials; empty fields keep their stored value
type SetGatewayConfigInput struct {
	APIKey     string `json:"apiKey,omitempty" jsonschema:"Nessie API key (optional)"`
	AccountID  string `json:"accountId,omitempty" jsonschema:"Nessie account ID (optional)"`
	CustomerID string `json:"customerId,omitempty" jsonschema:"Nessie customer ID (optional)"`
	MerchantID string `json:"merchantId,omitempty" jsonschema:"Nessie merchant ID (optional)"`
}

type SetGatewayConfigOutput struct {
	APIKeySet  bool   `json:"apiKeySet" jsonschema:"Whether an API key is stored"`
	AccountID  string `json:"accountId" jsonschema:"Stored account ID"`
	CustomerID string `json:"customerId" jsonschema:"Stored customer ID"`
	MerchantID string `json:"merchantId" jsonschema:"Stored merchant ID"`
}

func (t *nudgepayTools) SetGatewayConfig(ctx context.Context, req *mcp.CallToolRequest, input SetGatewayConfigInput) (*mcp.CallToolResult, SetGatewayConfigOutput, error) {
	if _, err := t.send(ctx, broker.TypeSetConfig, nessie.Credentials(input)); err != nil {
		return nil, SetGatewayConfigOutput{}, fmt.Errorf("failed to save config: %w", err)
	}

	cfg, err := t.state.GatewayConfig(ctx)
	if err != nil {
		return nil, SetGatewayConfigOutput{}, fmt.Errorf("failed to read config: %w", err)
	}
	return nil, SetGatewayConfigOutput{
		APIKeySet:  cfg.APIKey != "",
		AccountID:  cfg.AccountID,
		CustomerID: cfg.CustomerID,
		MerchantID: cfg.MerchantID,
	}, nil
}

// CreateDemoAccount tool - provisions a demo customer, account and merchant
type CreateDemoAccountInput struct{}

type CreateDemoAccountOutput struct {
	CustomerID string `json:"customerId" jsonschema:"Created customer ID"`
	AccountID  string `json:"accountId" jsonschema:"Created checking account ID"`
	MerchantID string `json:"merchantId" jsonschema:"Created merchant ID"`
}

func (t *nudgepayTools) CreateDemoAccount(ctx context.Context, req *mcp.CallToolRequest, input CreateDemoAccountInput) (*mcp.CallToolResult, CreateDemoAccountOutput, error) {
	resp, err := t.send(ctx, broker.TypeCreateDemo, nil)
	if err != nil {
		return nil, CreateDemoAccountOutput{}, fmt.Errorf("failed to create demo account: %w", err)
	}
	return nil, CreateDemoAccountOutput{
		CustomerID: resp.IDs.CustomerID,
		AccountID:  resp.IDs.AccountID,
		MerchantID: resp.IDs.MerchantID,
	}, nil
}

// DetectTotal tool - finds the checkout total in page markup
type DetectTotalInput struct {
	URL  string `json:"url" jsonschema:"Address of the checkout page (selects the vendor profile)"`
	HTML string `json:"html" jsonschema:"Page markup"`
}

type DetectTotalOutput struct {
	Vendor string  `json:"vendor,omitempty" jsonschema:"Vendor matched from the URL"`
	Found  bool    `json:"found" jsonschema:"Whether a total was detected"`
	Total  float64 `json:"total" jsonschema:"Detected total in dollars"`
}

func (t *nudgepayTools) DetectTotal(ctx context.Context, req *mcp.CallToolRequest, input DetectTotalInput) (*mcp.CallToolResult, DetectTotalOutput, error) {
	if input.URL == "" {
		return nil, DetectTotalOutput{}, fmt.Errorf("url is required")
	}

	agent := observer.New(observer.Options{
		Page:     observer.NewStaticPage(input.URL, input.HTML),
		State:    t.state,
		Registry: t.registry,
	})
	detected := agent.DetectTotal()

	out := DetectTotalOutput{Vendor: detected.Vendor, Found: detected.Found()}
	if out.Found {
		out.Total = detected.Amount.InexactFloat64()
	}
	return nil, out, nil
}
