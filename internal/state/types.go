package state

import (
	"time"

	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
	"github.com/shopspring/decimal"
)

// Persisted keys
const (
	KeyUserProfile       = "user_profile"
	KeyLedger            = "ledger"
	KeyRecurringPayments = "recurring_payments"
	KeyCategories        = "categories"
	KeyNessieConfig      = "nessie_config"
	KeyNessieSummary     = "nessie_summary"
)

// AllKeys lists every key the state facade reads
var AllKeys = []string{
	KeyUserProfile,
	KeyLedger,
	KeyRecurringPayments,
	KeyCategories,
	KeyNessieConfig,
	KeyNessieSummary,
}

// GatewayConfig holds the sandbox credentials and entity IDs
type GatewayConfig = nessie.Credentials

// BudgetProfile is the user's monthly budget
type BudgetProfile struct {
	TotalMonthlyBudget     decimal.Decimal        `json:"total_monthly_budget"`
	RemainingMonthlyBudget decimal.Decimal        `json:"remaining_monthly_budget"`
	Currency               string                 `json:"currency"`
	LastSynced             *time.Time             `json:"last_synced"`
	LastAccountSummary     *nessie.AccountSummary `json:"last_nessie_summary,omitempty"`
	NessieAccountID        string                 `json:"nessie_account_id,omitempty"`
}

// DefaultProfile is used when nothing has been synced yet
func DefaultProfile() BudgetProfile {
	return BudgetProfile{Currency: "USD"}
}

// Entry types
const (
	TypeFixed    = "Fixed"
	TypeVariable = "Variable"
)

// Entry sources
const (
	SourceManual    = "manual"
	SourceExtension = "extension"
)

// StatusConfirmed marks a ledger entry backed by a gateway purchase
const StatusConfirmed = "confirmed"

// LedgerEntry is one recorded spend. Entries are prepended and never edited.
type LedgerEntry struct {
	ID       string          `json:"id"`
	Date     nessie.Date     `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Vendor   string          `json:"vendor"`
	Category string          `json:"category"`
	Type     string          `json:"type"`
	Source   string          `json:"source"`
	Status   string          `json:"status"`
}

// Frequency of a recurring payment
type Frequency string

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// RecurringPayment is a user-defined repeating charge
type RecurringPayment struct {
	ID            string          `json:"id"`
	Vendor        string          `json:"vendor"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Frequency     Frequency       `json:"frequency"`
	BillingDay    int             `json:"billing_day"`
	Type          string          `json:"type"`
	Active        bool            `json:"active"`
	LastGenerated string          `json:"last_generated,omitempty"`
}

// Categories splits built-in and user category names
type Categories struct {
	System []string `json:"system"`
	User   []string `json:"user"`
}

// DefaultCategories are the built-in categories
func DefaultCategories() Categories {
	return Categories{
		System: []string{"Food", "Shopping", "Bills", "Entertainment", "Transport"},
		User:   []string{},
	}
}

// Snapshot is every persisted value read in one call
type Snapshot struct {
	Profile    BudgetProfile
	Ledger     []LedgerEntry
	Recurring  []RecurringPayment
	Categories Categories
	Config     GatewayConfig
	Summary    *nessie.AccountSummary
}
