package nessie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/eshaffer321/nudgepay-go/internal/templates"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// demoService implements DemoService
type demoService struct {
	client *Client
}

// Provision creates a customer, then an account under it, then a merchant.
// Each step needs the previous step's ID, so the first failure stops the run.
func (s *demoService) Provision(ctx context.Context, apiKey string) (*DemoAccount, error) {
	if err := (Credentials{APIKey: apiKey}).Require(FieldAPIKey); err != nil {
		return nil, err
	}

	customerBody, err := s.client.payloads.Render(templates.DemoCustomer, map[string]string{
		"Suffix": demoSuffix(),
	})
	if err != nil {
		return nil, err
	}
	customerID, err := s.create(ctx, "CreateCustomer", "customer", "/customers", apiKey, customerBody)
	if err != nil {
		return nil, err
	}

	accountBody, err := s.client.payloads.Render(templates.DemoAccount, nil)
	if err != nil {
		return nil, err
	}
	accountPath := fmt.Sprintf("/customers/%s/accounts", url.PathEscape(customerID))
	accountID, err := s.create(ctx, "CreateAccount", "account", accountPath, apiKey, accountBody)
	if err != nil {
		return nil, err
	}

	merchantBody, err := s.client.payloads.Render(templates.DemoMerchant, nil)
	if err != nil {
		return nil, err
	}
	merchantID, err := s.create(ctx, "CreateMerchant", "merchant", "/merchants", apiKey, merchantBody)
	if err != nil {
		return nil, err
	}

	s.client.options.Logger.Info("Provisioned demo account",
		"customer", customerID,
		"account", accountID,
		"merchant", merchantID,
	)

	return &DemoAccount{
		CustomerID: customerID,
		AccountID:  accountID,
		MerchantID: merchantID,
	}, nil
}

func (s *demoService) create(ctx context.Context, operation, entity, path, apiKey string, body json.RawMessage) (string, error) {
	var raw json.RawMessage
	if err := s.client.call(ctx, operation, http.MethodPost, path, apiKey, body, &raw); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", entity)
	}

	id, ok := ExtractID(raw)
	if !ok {
		return "", &MissingIDError{Entity: entity, Payload: string(raw)}
	}
	return id, nil
}

// demoSuffix is the four-digit tail of the demo customer's last name
func demoSuffix() string {
	id := uuid.New()
	n := (uint32(id[0])<<8 | uint32(id[1])) % 10000
	return fmt.Sprintf("%04d", n)
}

// ExtractID finds the created entity's ID in one of the response shapes the
// API uses: _id, id, objectCreated._id, objectCreated.id.
func ExtractID(raw json.RawMessage) (string, bool) {
	var shape struct {
		UnderscoreID  interface{} `json:"_id"`
		ID            interface{} `json:"id"`
		ObjectCreated *struct {
			UnderscoreID interface{} `json:"_id"`
			ID           interface{} `json:"id"`
		} `json:"objectCreated"`
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&shape); err != nil {
		return "", false
	}

	candidates := []interface{}{shape.UnderscoreID, shape.ID}
	if shape.ObjectCreated != nil {
		candidates = append(candidates, shape.ObjectCreated.UnderscoreID, shape.ObjectCreated.ID)
	}
	for _, c := range candidates {
		if id := idString(c); id != "" {
			return id, true
		}
	}
	return "", false
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		if id.String() == "0" {
			return ""
		}
		return id.String()
	}
	return ""
}
