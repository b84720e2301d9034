package nessie

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eshaffer321/nudgepay-go/internal/money"
	"github.com/eshaffer321/nudgepay-go/internal/templates"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// purchaseService implements PurchaseService
type purchaseService struct {
	client *Client
}

type purchaseParams struct {
	MerchantID  string
	Date        string
	Amount      string
	Description string
}

// Create posts a purchase paid from the account balance
func (s *purchaseService) Create(ctx context.Context, creds Credentials, amount decimal.Decimal, description string) (json.RawMessage, error) {
	if err := creds.Require(FieldAPIKey, FieldAccountID, FieldMerchantID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}

	body, err := s.client.payloads.Render(templates.Purchase, purchaseParams{
		MerchantID:  creds.MerchantID,
		Date:        NewDate(s.client.now()).String(),
		Amount:      money.Round(amount).StringFixed(money.Places),
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	var record json.RawMessage
	if err := s.client.call(ctx, "CreatePurchase", http.MethodPost, accountPath(creds.AccountID, "/purchases"), creds.APIKey, body, &record); err != nil {
		return nil, errors.Wrap(err, "failed to create purchase")
	}

	s.client.options.Logger.Info("Created purchase", "account", creds.AccountID, "amount", amount.StringFixed(2))
	return record, nil
}
