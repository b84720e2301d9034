// Package preview drives the one-shot popup: it predicts the balance left
// after the detected checkout and can confirm the purchase through the broker.
package preview

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
	"github.com/eshaffer321/nudgepay-go/internal/extract"
	"github.com/eshaffer321/nudgepay-go/internal/money"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/internal/types"
)

// Status lines shown by the popup
const (
	StatusNoPage             = "No active tab found."
	StatusNoTotal            = "No checkout total detected on this page."
	StatusReady              = "Prediction ready. Proceed with caution."
	StatusSummaryUnavailable = "Nessie summary unavailable."
	StatusCheckoutDone       = "Checkout simulated in Nessie."
	StatusCheckoutFailed     = "Nessie checkout failed."
)

// ErrNotReady is returned by Confirm for a prediction without a total
var ErrNotReady = errors.New("no prediction to confirm")

// Detector answers on-demand total queries, usually an observer.Agent
type Detector interface {
	DetectTotal() extract.DetectedTotal
}

// Handler sends requests to the broker
type Handler interface {
	Handle(ctx context.Context, req broker.Request) broker.Response
}

// Prediction is what the popup displays
type Prediction struct {
	Vendor    string          `json:"vendor,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Budget    decimal.Decimal `json:"budget"`
	Predicted decimal.Decimal `json:"predicted"`
	Status    string          `json:"status"`
	Ready     bool            `json:"ready"`
}

// Popup is one popup session
type Popup struct {
	state  *state.Store
	broker Handler
	page   Detector
	logger types.Logger
}

// New creates a popup. page may be nil when no page is active.
func New(st *state.Store, h Handler, page Detector, logger types.Logger) *Popup {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Popup{state: st, broker: h, page: page, logger: logger}
}

// Preview computes the prediction for the active page
func (p *Popup) Preview(ctx context.Context) Prediction {
	available, status := p.budget(ctx)
	pred := Prediction{Budget: available, Status: status}

	if p.page == nil {
		pred.Status = StatusNoPage
		return pred
	}

	detected := p.page.DetectTotal()
	if !detected.Found() {
		pred.Status = StatusNoTotal
		return pred
	}

	pred.Vendor = detected.Vendor
	pred.Total = *detected.Amount
	pred.Predicted = money.Round(available.Sub(pred.Total))
	pred.Status = StatusReady
	pred.Ready = true
	return pred
}

// Confirm submits the predicted purchase and returns the resulting status line
func (p *Popup) Confirm(ctx context.Context, pred Prediction) (string, error) {
	if !pred.Ready {
		return StatusNoTotal, ErrNotReady
	}

	req, err := broker.NewRequest(broker.TypeCheckout, broker.CheckoutPayload{Amount: pred.Total, Vendor: pred.Vendor})
	if err != nil {
		return StatusCheckoutFailed, errors.Wrap(err, "failed to build checkout")
	}

	resp := p.broker.Handle(ctx, req)
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = StatusCheckoutFailed
		}
		return msg, errors.New(msg)
	}

	p.logger.Info("Checkout confirmed", "vendor", pred.Vendor, "amount", money.Format(pred.Total))
	return StatusCheckoutDone, nil
}

// budget is the profile's monthly total, else a freshly fetched balance,
// else zero. A failed fetch yields a status line for the popup.
func (p *Popup) budget(ctx context.Context) (decimal.Decimal, string) {
	profile, err := p.state.Profile(ctx)
	if err != nil {
		p.logger.Warn("Failed to read profile", "error", err)
	} else if total := money.Round(profile.TotalMonthlyBudget); total.IsPositive() {
		return total, ""
	}

	resp := p.broker.Handle(ctx, broker.Request{Type: broker.TypeGetSummary})
	if !resp.OK {
		if resp.Error != "" {
			return decimal.Zero, resp.Error
		}
		return decimal.Zero, StatusSummaryUnavailable
	}
	if resp.Summary != nil && !resp.Summary.Balance.IsZero() {
		return money.Round(resp.Summary.Balance), ""
	}
	return decimal.Zero, ""
}
