package broker

import (
	"encoding/json"

	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
	"github.com/shopspring/decimal"
)

// Request types
const (
	TypeSetData         = "NUDGEPAY_SET_DATA"
	TypeSetConfig       = "NUDGEPAY_NESSIE_SET_CONFIG"
	TypeGetSummary      = "NUDGEPAY_NESSIE_GET_SUMMARY"
	TypeCheckout        = "NUDGEPAY_NESSIE_CHECKOUT"
	TypeCreateDemo      = "NUDGEPAY_NESSIE_CREATE_DEMO"
	TypeRecomputeBudget = "NUDGEPAY_RECOMPUTE_BUDGET"

	// TypeGetTotal is answered by page observers, never by the broker
	TypeGetTotal = "NUDGEPAY_GET_TOTAL"
)

// Failure messages returned before any side effect
const (
	ErrMissingType    = "Missing message type"
	ErrUnknownType    = "Unknown message type"
	ErrMissingPayload = "Missing payload"
	ErrInvalidAmount  = "Amount must be greater than 0"
)

// Request is one message sent to the broker
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the single reply to a Request
type Response struct {
	OK       bool                   `json:"ok"`
	Error    string                 `json:"error,omitempty"`
	Summary  *nessie.AccountSummary `json:"summary,omitempty"`
	Purchase json.RawMessage        `json:"purchase,omitempty"`
	IDs      *nessie.DemoAccount    `json:"ids,omitempty"`
	Profile  *state.BudgetProfile   `json:"profile,omitempty"`
}

// Failure builds an error response
func Failure(msg string) Response {
	return Response{OK: false, Error: msg}
}

// CheckoutPayload is the body of a checkout request
type CheckoutPayload struct {
	Amount decimal.Decimal `json:"amount"`
	Vendor string          `json:"vendor"`
}

// NewRequest marshals payload into a Request
func NewRequest(msgType string, payload interface{}) (Request, error) {
	req := Request{Type: msgType}
	if payload == nil {
		return req, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return req, err
	}
	req.Payload = data
	return req, nil
}

func hasPayload(p json.RawMessage) bool {
	return len(p) > 0 && string(p) != "null"
}
