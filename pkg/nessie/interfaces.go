package nessie

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AccountService reads account state
type AccountService interface {
	// Get returns the account detail record
	Get(ctx context.Context, creds Credentials) (*Account, error)

	// Purchases lists the account's purchases
	Purchases(ctx context.Context, creds Credentials) ([]Activity, error)

	// Deposits lists the account's deposits
	Deposits(ctx context.Context, creds Credentials) ([]Activity, error)

	// Summary combines the above into balance plus trailing 30-day totals
	Summary(ctx context.Context, creds Credentials) (*AccountSummary, error)
}

// PurchaseService writes purchases
type PurchaseService interface {
	// Create posts a purchase for amount against creds.MerchantID and
	// returns the raw record the API sent back
	Create(ctx context.Context, creds Credentials, amount decimal.Decimal, description string) (json.RawMessage, error)
}

// DemoService provisions sandbox entities
type DemoService interface {
	// Provision creates a customer, then an account under it, then a merchant
	Provision(ctx context.Context, apiKey string) (*DemoAccount, error)
}
