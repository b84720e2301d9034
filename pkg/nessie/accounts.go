package nessie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/eshaffer321/nudgepay-go/internal/money"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// SummaryWindow is how far back income and spend are summed
const SummaryWindow = 30 * 24 * time.Hour

// accountService implements AccountService
type accountService struct {
	client *Client
}

func accountPath(accountID string, suffix string) string {
	return fmt.Sprintf("/accounts/%s%s", url.PathEscape(accountID), suffix)
}

// Get returns the account detail record
func (s *accountService) Get(ctx context.Context, creds Credentials) (*Account, error) {
	if err := creds.Require(FieldAPIKey, FieldAccountID); err != nil {
		return nil, err
	}

	var account Account
	if err := s.client.call(ctx, "GetAccount", http.MethodGet, accountPath(creds.AccountID, ""), creds.APIKey, nil, &account); err != nil {
		return nil, errors.Wrap(err, "failed to get account")
	}
	return &account, nil
}

// Purchases lists the account's purchases
func (s *accountService) Purchases(ctx context.Context, creds Credentials) ([]Activity, error) {
	return s.listActivity(ctx, creds, "ListPurchases", "/purchases")
}

// Deposits lists the account's deposits
func (s *accountService) Deposits(ctx context.Context, creds Credentials) ([]Activity, error) {
	return s.listActivity(ctx, creds, "ListDeposits", "/deposits")
}

func (s *accountService) listActivity(ctx context.Context, creds Credentials, operation, suffix string) ([]Activity, error) {
	if err := creds.Require(FieldAPIKey, FieldAccountID); err != nil {
		return nil, err
	}

	var items []Activity
	if err := s.client.call(ctx, operation, http.MethodGet, accountPath(creds.AccountID, suffix), creds.APIKey, nil, &items); err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", suffix[1:])
	}
	return items, nil
}

// Summary issues the account, purchases and deposits calls in that order
func (s *accountService) Summary(ctx context.Context, creds Credentials) (*AccountSummary, error) {
	account, err := s.Get(ctx, creds)
	if err != nil {
		return nil, err
	}

	purchases, err := s.Purchases(ctx, creds)
	if err != nil {
		return nil, err
	}

	deposits, err := s.Deposits(ctx, creds)
	if err != nil {
		return nil, err
	}

	now := s.client.now()
	summary := &AccountSummary{
		Balance:      money.Round(account.Balance),
		AccountName:  account.DisplayName(),
		AccountType:  account.Type,
		IncomeLast30: SumSince(deposits, now.Add(-SummaryWindow)),
		SpendLast30:  SumSince(purchases, now.Add(-SummaryWindow)),
	}
	if summary.AccountType == "" {
		summary.AccountType = "Checking"
	}

	s.client.options.Logger.Debug("Fetched account summary",
		"account", creds.AccountID,
		"balance", summary.Balance.StringFixed(2),
		"purchases", len(purchases),
		"deposits", len(deposits),
	)

	return summary, nil
}

// SumSince adds up the amounts of items dated at or after cutoff. Items whose
// date is missing or unparseable are left out.
func SumSince(items []Activity, cutoff time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		t, ok := ParseDate(item.DateValue())
		if !ok || t.Before(cutoff) {
			continue
		}
		total = total.Add(item.Amount)
	}
	return money.Round(total)
}
