package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
	"github.com/eshaffer321/nudgepay-go/internal/extract"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/internal/store"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
)

// sandbox is an in-process stand-in for the Nessie gateway
type sandbox struct {
	balance   decimal.Decimal
	purchases []decimal.Decimal
}

func (s *sandbox) FetchAccountSummary(_ context.Context, _ nessie.Credentials) (*nessie.AccountSummary, error) {
	return &nessie.AccountSummary{Balance: s.balance, AccountName: "NudgePay Checking", AccountType: "Checking"}, nil
}

func (s *sandbox) CreatePurchase(_ context.Context, _ nessie.Credentials, amount decimal.Decimal, _ string) (json.RawMessage, error) {
	s.purchases = append(s.purchases, amount)
	s.balance = s.balance.Sub(amount)
	return json.RawMessage(`{"code":201,"objectCreated":{"_id":"purchase-1"}}`), nil
}

func (s *sandbox) CreateDemoAccount(_ context.Context, _ string) (*nessie.DemoAccount, error) {
	return &nessie.DemoAccount{CustomerID: "c-1", AccountID: "a-1", MerchantID: "m-1"}, nil
}

func newTestTools(t *testing.T, gw broker.Gateway) *nudgepayTools {
	t.Helper()

	st := state.New(store.NewMemory())
	brk := broker.New(broker.Options{Gateway: gw, State: st})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = brk.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &nudgepayTools{broker: brk, state: st, registry: extract.NewRegistry()}
}

func TestGetAccountSummaryTool_MissingConfig(t *testing.T) {
	tools := newTestTools(t, &sandbox{})

	_, _, err := tools.GetAccountSummary(context.Background(), nil, GetAccountSummaryInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing Nessie config: apiKey")
}

func TestSetGatewayConfigTool(t *testing.T) {
	tools := newTestTools(t, &sandbox{})
	ctx := context.Background()

	_, out, err := tools.SetGatewayConfig(ctx, nil, SetGatewayConfigInput{APIKey: "key", AccountID: "a-1"})
	require.NoError(t, err)
	assert.True(t, out.APIKeySet)
	assert.Equal(t, "a-1", out.AccountID)

	_, out, err = tools.SetGatewayConfig(ctx, nil, SetGatewayConfigInput{MerchantID: "m-1"})
	require.NoError(t, err)
	assert.Equal(t, "a-1", out.AccountID)
	assert.Equal(t, "m-1", out.MerchantID)
}

func TestSimulateCheckoutTool(t *testing.T) {
	gw := &sandbox{balance: decimal.NewFromInt(2400)}
	tools := newTestTools(t, gw)
	ctx := context.Background()

	_, _, err := tools.SetGatewayConfig(ctx, nil, SetGatewayConfigInput{APIKey: "key", AccountID: "a-1", MerchantID: "m-1"})
	require.NoError(t, err)

	_, out, err := tools.SimulateCheckout(ctx, nil, SimulateCheckoutInput{Amount: 19.99, Vendor: "Amazon"})
	require.NoError(t, err)
	assert.Equal(t, "purchase-1", out.PurchaseID)
	assert.InDelta(t, 2380.01, out.Summary.Balance, 0.001)
	require.Len(t, gw.purchases, 1)
	assert.Equal(t, "19.99", gw.purchases[0].StringFixed(2))

	ledger, err := tools.state.Ledger(ctx)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, "Online Shopping", ledger[0].Category)
}

func TestSimulateCheckoutTool_InvalidAmount(t *testing.T) {
	tools := newTestTools(t, &sandbox{})
	ctx := context.Background()

	_, _, err := tools.SetGatewayConfig(ctx, nil, SetGatewayConfigInput{APIKey: "key", AccountID: "a-1", MerchantID: "m-1"})
	require.NoError(t, err)

	_, _, err = tools.SimulateCheckout(ctx, nil, SimulateCheckoutInput{Amount: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), broker.ErrInvalidAmount)
}

func TestCreateDemoAccountTool(t *testing.T) {
	tools := newTestTools(t, &sandbox{})
	ctx := context.Background()

	_, _, err := tools.SetGatewayConfig(ctx, nil, SetGatewayConfigInput{APIKey: "key"})
	require.NoError(t, err)

	_, out, err := tools.CreateDemoAccount(ctx, nil, CreateDemoAccountInput{})
	require.NoError(t, err)
	assert.Equal(t, CreateDemoAccountOutput{CustomerID: "c-1", AccountID: "a-1", MerchantID: "m-1"}, out)
}

func TestDetectTotalTool(t *testing.T) {
	tools := newTestTools(t, &sandbox{})

	_, out, err := tools.DetectTotal(context.Background(), nil, DetectTotalInput{
		URL:  "https://www.ubereats.com/checkout",
		HTML: `<html><body><ul><li><span>Subtotal</span><span>$20.00</span></li><li><span>Total</span><span>$23.45</span></li></ul></body></html>`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Uber Eats", out.Vendor)
	assert.True(t, out.Found)
	assert.InDelta(t, 23.45, out.Total, 0.001)

	_, out, err = tools.DetectTotal(context.Background(), nil, DetectTotalInput{URL: "https://example.com", HTML: "<p>$5.00</p>"})
	require.NoError(t, err)
	assert.False(t, out.Found)

	_, _, err = tools.DetectTotal(context.Background(), nil, DetectTotalInput{})
	assert.Error(t, err)
}
