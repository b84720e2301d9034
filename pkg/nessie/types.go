package nessie

import (
	"github.com/shopspring/decimal"
)

// Credentials identifies the caller and the sandbox entities it acts on.
// Fields fill in over time; demo provisioning supplies all but the key.
type Credentials struct {
	APIKey     string `json:"apiKey"`
	AccountID  string `json:"accountId"`
	CustomerID string `json:"customerId"`
	MerchantID string `json:"merchantId"`
}

// Merge returns c with every non-empty field of incoming applied. A blank
// incoming field never erases a known value.
func (c Credentials) Merge(incoming Credentials) Credentials {
	if incoming.APIKey != "" {
		c.APIKey = incoming.APIKey
	}
	if incoming.AccountID != "" {
		c.AccountID = incoming.AccountID
	}
	if incoming.CustomerID != "" {
		c.CustomerID = incoming.CustomerID
	}
	if incoming.MerchantID != "" {
		c.MerchantID = incoming.MerchantID
	}
	return c
}

// Field names accepted by Require
const (
	FieldAPIKey     = "apiKey"
	FieldAccountID  = "accountId"
	FieldCustomerID = "customerId"
	FieldMerchantID = "merchantId"
)

// Require returns a *MissingConfigError naming the first empty field
func (c Credentials) Require(fields ...string) error {
	for _, f := range fields {
		if c.field(f) == "" {
			return &MissingConfigError{Field: f}
		}
	}
	return nil
}

func (c Credentials) field(name string) string {
	switch name {
	case FieldAPIKey:
		return c.APIKey
	case FieldAccountID:
		return c.AccountID
	case FieldCustomerID:
		return c.CustomerID
	case FieldMerchantID:
		return c.MerchantID
	}
	return ""
}

// Account is the subset of /accounts/{id} that the summary reads
type Account struct {
	ID         string          `json:"_id"`
	Type       string          `json:"type"`
	Nickname   string          `json:"nickname"`
	Name       string          `json:"name"`
	Rewards    int             `json:"rewards"`
	Balance    decimal.Decimal `json:"balance"`
	CustomerID string          `json:"customer_id"`
}

// DisplayName is the nickname, else the name, else "Account"
func (a *Account) DisplayName() string {
	switch {
	case a.Nickname != "":
		return a.Nickname
	case a.Name != "":
		return a.Name
	default:
		return "Account"
	}
}

// Activity is one purchase or deposit. Dates are kept raw since the API is
// inconsistent about which field it fills and how it formats it.
type Activity struct {
	ID              string          `json:"_id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Status          string          `json:"status"`
	PurchaseDate    string          `json:"purchase_date"`
	TransactionDate string          `json:"transaction_date"`
	DepositDate     string          `json:"deposit_date"`
	CreatedAt       string          `json:"created_at"`
}

// DateValue returns the first non-empty date field
func (a Activity) DateValue() string {
	for _, v := range []string{a.PurchaseDate, a.TransactionDate, a.DepositDate, a.CreatedAt} {
		if v != "" {
			return v
		}
	}
	return ""
}

// AccountSummary is the cached snapshot the budget display works from
type AccountSummary struct {
	Balance      decimal.Decimal `json:"balance"`
	AccountName  string          `json:"accountName"`
	AccountType  string          `json:"accountType"`
	IncomeLast30 decimal.Decimal `json:"incomeLast30"`
	SpendLast30  decimal.Decimal `json:"spendLast30"`
}

// DemoAccount holds the identifiers of freshly provisioned sandbox entities
type DemoAccount struct {
	CustomerID string `json:"customerId"`
	AccountID  string `json:"accountId"`
	MerchantID string `json:"merchantId"`
}

// Apply returns c with the demo identifiers overwriting its own
func (d *DemoAccount) Apply(c Credentials) Credentials {
	c.CustomerID = d.CustomerID
	c.AccountID = d.AccountID
	c.MerchantID = d.MerchantID
	return c
}
