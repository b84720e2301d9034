package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eshaffer321/nudgepay-go/internal/budget"
	"github.com/eshaffer321/nudgepay-go/internal/bus"
	"github.com/eshaffer321/nudgepay-go/internal/money"
	"github.com/eshaffer321/nudgepay-go/internal/state"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
	"github.com/google/uuid"
)

// budgetKeys are the persisted keys that feed the remaining-budget formula
var budgetKeys = []string{state.KeyUserProfile, state.KeyLedger, state.KeyRecurringPayments}

// setRawProfile writes a dashboard state blob as-is, then brings the
// remaining budget in line with it
func (b *Broker) setRawProfile(ctx context.Context, payload json.RawMessage) Response {
	if !hasPayload(payload) {
		return Failure(ErrMissingPayload)
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(payload, &values); err != nil {
		return Failure(fmt.Sprintf("Invalid payload: %v", err))
	}
	if err := b.state.SetRaw(ctx, values); err != nil {
		return Failure(err.Error())
	}

	for _, key := range budgetKeys {
		if _, ok := values[key]; ok {
			profile, err := b.applyRemaining(ctx)
			if err != nil {
				return Failure(err.Error())
			}
			return Response{OK: true, Profile: profile}
		}
	}
	return Response{OK: true}
}

func (b *Broker) setGatewayConfig(ctx context.Context, payload json.RawMessage) Response {
	var incoming state.GatewayConfig
	if hasPayload(payload) {
		if err := json.Unmarshal(payload, &incoming); err != nil {
			return Failure(fmt.Sprintf("Invalid payload: %v", err))
		}
	}

	existing, err := b.state.GatewayConfig(ctx)
	if err != nil {
		return Failure(err.Error())
	}
	if err := b.state.Save(ctx, map[string]interface{}{
		state.KeyNessieConfig: existing.Merge(incoming),
	}); err != nil {
		return Failure(err.Error())
	}
	return Response{OK: true}
}

func (b *Broker) getAccountSummary(ctx context.Context) Response {
	snap, err := b.state.Snapshot(ctx)
	if err != nil {
		return Failure(err.Error())
	}
	if err := snap.Config.Require(nessie.FieldAPIKey, nessie.FieldAccountID); err != nil {
		return Failure(err.Error())
	}

	summary, err := b.gateway.FetchAccountSummary(ctx, snap.Config)
	if err != nil {
		return b.gatewayFailure(ctx, TypeGetSummary, err)
	}

	profile := snap.Profile
	profile.LastAccountSummary = summary
	if err := b.state.Save(ctx, map[string]interface{}{
		state.KeyNessieSummary: summary,
		state.KeyUserProfile:   profile,
	}); err != nil {
		return Failure(err.Error())
	}

	b.publish(bus.Event{Type: bus.EventSummaryUpdated, Summary: summary})
	return Response{OK: true, Summary: summary}
}

// simulateCheckout posts a purchase, re-reads the account, corrects a lagging
// balance and records the spend locally. Nothing is written unless both
// gateway calls succeed.
func (b *Broker) simulateCheckout(ctx context.Context, payload json.RawMessage) Response {
	if !hasPayload(payload) {
		return Failure(ErrMissingPayload)
	}
	var checkout CheckoutPayload
	if err := json.Unmarshal(payload, &checkout); err != nil {
		return Failure(fmt.Sprintf("Invalid payload: %v", err))
	}

	snap, err := b.state.Snapshot(ctx)
	if err != nil {
		return Failure(err.Error())
	}
	if err := snap.Config.Require(nessie.FieldAPIKey, nessie.FieldAccountID, nessie.FieldMerchantID); err != nil {
		return Failure(err.Error())
	}

	amount := money.Round(checkout.Amount)
	if !amount.IsPositive() {
		return Failure(ErrInvalidAmount)
	}
	vendor := checkout.Vendor
	if vendor == "" {
		vendor = "Unknown"
	}

	previous := snap.Summary
	if previous == nil {
		previous = snap.Profile.LastAccountSummary
	}

	purchase, err := b.gateway.CreatePurchase(ctx, snap.Config, amount, fmt.Sprintf("NudgePay checkout: %s", vendor))
	if err != nil {
		return b.gatewayFailure(ctx, TypeCheckout, err)
	}

	fresh, err := b.gateway.FetchAccountSummary(ctx, snap.Config)
	if err != nil {
		return b.gatewayFailure(ctx, TypeCheckout, err)
	}

	summary, corrected := budget.ReconcileBalance(previous, fresh, amount)
	if corrected {
		b.logger.Info("Corrected lagging balance",
			"reported", fresh.Balance.StringFixed(2),
			"corrected", summary.Balance.StringFixed(2),
		)
	}

	category := budget.Categorize(vendor)
	now := b.now()

	profile := snap.Profile
	profile.RemainingMonthlyBudget = money.NonNegative(profile.RemainingMonthlyBudget.Sub(amount))
	profile.LastAccountSummary = summary

	entry := state.LedgerEntry{
		ID:       uuid.NewString(),
		Date:     nessie.NewDate(now),
		Amount:   amount,
		Vendor:   vendor,
		Category: category,
		Type:     state.TypeVariable,
		Source:   state.SourceExtension,
		Status:   state.StatusConfirmed,
	}
	ledger := append([]state.LedgerEntry{entry}, snap.Ledger...)

	if err := b.state.Save(ctx, map[string]interface{}{
		state.KeyNessieSummary: summary,
		state.KeyUserProfile:   profile,
		state.KeyLedger:        ledger,
	}); err != nil {
		return Failure(err.Error())
	}

	b.publish(bus.Event{
		Type:     bus.EventPurchaseCompleted,
		Summary:  summary,
		Amount:   &amount,
		Vendor:   vendor,
		Category: category,
	})

	return Response{OK: true, Purchase: purchase, Summary: summary}
}

func (b *Broker) createDemoAccount(ctx context.Context) Response {
	cfg, err := b.state.GatewayConfig(ctx)
	if err != nil {
		return Failure(err.Error())
	}
	if err := cfg.Require(nessie.FieldAPIKey); err != nil {
		return Failure(err.Error())
	}

	demo, err := b.gateway.CreateDemoAccount(ctx, cfg.APIKey)
	if err != nil {
		return b.gatewayFailure(ctx, TypeCreateDemo, err)
	}

	if err := b.state.Save(ctx, map[string]interface{}{
		state.KeyNessieConfig: demo.Apply(cfg),
	}); err != nil {
		return Failure(err.Error())
	}
	return Response{OK: true, IDs: demo}
}

func (b *Broker) recomputeBudget(ctx context.Context) Response {
	profile, err := b.applyRemaining(ctx)
	if err != nil {
		return Failure(err.Error())
	}
	return Response{OK: true, Profile: profile}
}

// applyRemaining recomputes and persists remaining_monthly_budget
func (b *Broker) applyRemaining(ctx context.Context) (*state.BudgetProfile, error) {
	snap, err := b.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	profile := snap.Profile
	profile.RemainingMonthlyBudget = budget.Remaining(profile.TotalMonthlyBudget, snap.Recurring, snap.Ledger, b.now())
	if err := b.state.Save(ctx, map[string]interface{}{state.KeyUserProfile: profile}); err != nil {
		return nil, err
	}
	return &profile, nil
}
