// Package budget holds the monthly budget arithmetic and the rules that
// keep a cached account balance plausible after a simulated purchase.
package budget

import (
	"strings"
	"time"

	"github.com/eshaffer321/nudgepay-go/internal/money"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
	"github.com/shopspring/decimal"
)

var (
	weeksPerMonth = decimal.NewFromInt(4)
	monthsPerYear = decimal.NewFromInt(12)
)

// MonthlyEquivalent normalises a recurring charge to one month. Unknown
// frequencies count as monthly.
func MonthlyEquivalent(p state.RecurringPayment) decimal.Decimal {
	switch state.Frequency(strings.ToLower(string(p.Frequency))) {
	case state.Weekly:
		return money.Round(p.Amount.Mul(weeksPerMonth))
	case state.Yearly:
		return money.Round(p.Amount.Div(monthsPerYear))
	default:
		return money.Round(p.Amount)
	}
}

// Remaining is total minus active recurring charges minus the ledger entries
// dated in now's calendar month. The result may be negative.
func Remaining(total decimal.Decimal, recurring []state.RecurringPayment, ledger []state.LedgerEntry, now time.Time) decimal.Decimal {
	remaining := total
	for _, p := range recurring {
		if !p.Active {
			continue
		}
		remaining = remaining.Sub(MonthlyEquivalent(p))
	}
	for _, e := range ledger {
		if SameMonth(e.Date.Time, now) {
			remaining = remaining.Sub(e.Amount)
		}
	}
	return money.Round(remaining)
}

// SameMonth compares calendar months. Ledger dates are calendar days, so t is
// read in its own location rather than converted to now's.
func SameMonth(t, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	ty, tm, _ := t.Date()
	ny, nm, _ := now.Date()
	return ty == ny && tm == nm
}

// Categories assigned by Categorize
const (
	CategoryFood           = "Food"
	CategoryOnlineShopping = "Online Shopping"
	CategoryShopping       = "Shopping"
)

var foodBrands = []string{"uber eats", "ubereats", "doordash", "grubhub"}

// Categorize maps a vendor name to a ledger category
func Categorize(vendor string) string {
	v := strings.ToLower(vendor)
	for _, brand := range foodBrands {
		if strings.Contains(v, brand) {
			return CategoryFood
		}
	}
	if strings.Contains(v, "amazon") {
		return CategoryOnlineShopping
	}
	return CategoryShopping
}

// ReconcileBalance corrects fresh when the sandbox has not yet reflected a
// purchase of amount. With no previous summary fresh is returned unchanged.
//
// The expected drop is the growth in 30-day spend, or amount when spend did
// not move. If the fresh balance did not fall, or fell by less than expected,
// it is replaced by previous balance minus the expected drop, floored at 0.
func ReconcileBalance(prev, fresh *nessie.AccountSummary, amount decimal.Decimal) (*nessie.AccountSummary, bool) {
	if fresh == nil {
		return nil, false
	}
	corrected := *fresh
	if prev == nil {
		return &corrected, false
	}

	spendDelta := money.NonNegative(fresh.SpendLast30.Sub(prev.SpendLast30))
	expectedDrop := amount
	if spendDelta.IsPositive() {
		expectedDrop = spendDelta
	}
	candidate := money.Round(money.NonNegative(prev.Balance.Sub(expectedDrop)))

	if fresh.Balance.GreaterThanOrEqual(prev.Balance) || fresh.Balance.GreaterThan(candidate) {
		corrected.Balance = candidate
		return &corrected, true
	}
	return &corrected, false
}

// DisplayBudget is the figure a prediction subtracts from: remaining budget
// when a total is set, else the cached balance, else zero
func DisplayBudget(profile state.BudgetProfile, summary *nessie.AccountSummary) decimal.Decimal {
	if profile.TotalMonthlyBudget.IsPositive() {
		return profile.RemainingMonthlyBudget
	}
	if summary != nil {
		return summary.Balance
	}
	if profile.LastAccountSummary != nil {
		return profile.LastAccountSummary.Balance
	}
	return decimal.Zero
}
