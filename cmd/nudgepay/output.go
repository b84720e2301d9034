package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/eshaffer321/nudgepay-go/internal/extract"
	"github.com/eshaffer321/nudgepay-go/internal/money"
	"github.com/eshaffer321/nudgepay-go/internal/preview"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
)

var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorGood   = lipgloss.Color("#04B575")
	colorWarn   = lipgloss.Color("#FFA500")
	colorDim    = lipgloss.Color("#888888")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(colorDim).Width(12)
	valueStyle = lipgloss.NewStyle().Bold(true)
	goodStyle  = lipgloss.NewStyle().Foreground(colorGood)
	warnStyle  = lipgloss.NewStyle().Foreground(colorWarn)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func renderDetected(d extract.DetectedTotal) string {
	if !d.Found() {
		return warnStyle.Render(preview.StatusNoTotal)
	}
	lines := []string{
		titleStyle.Render("Checkout total"),
		row("Vendor", d.Vendor),
		row("Total", money.Format(*d.Amount)),
	}
	return strings.Join(lines, "\n")
}

func renderSummary(s *nessie.AccountSummary) string {
	lines := []string{
		titleStyle.Render(s.AccountName),
		row("Type", s.AccountType),
		row("Balance", money.Format(s.Balance)),
		row("In (30d)", goodStyle.Render(money.Format(s.IncomeLast30))),
		row("Out (30d)", warnStyle.Render(money.Format(s.SpendLast30))),
	}
	return strings.Join(lines, "\n")
}

func renderPrediction(p preview.Prediction) string {
	if !p.Ready {
		return warnStyle.Render(p.Status)
	}
	predicted := goodStyle
	if p.Predicted.IsNegative() {
		predicted = warnStyle
	}
	lines := []string{
		titleStyle.Render(p.Vendor),
		row("Total", money.Format(p.Total)),
		row("Budget", money.Format(p.Budget)),
		row("After", predicted.Render(money.Format(p.Predicted))),
		"",
		p.Status,
	}
	return strings.Join(lines, "\n")
}

func renderDemo(ids *nessie.DemoAccount) string {
	return strings.Join([]string{
		titleStyle.Render("Demo account created"),
		row("Customer", ids.CustomerID),
		row("Account", ids.AccountID),
		row("Merchant", ids.MerchantID),
	}, "\n")
}

func printOut(w io.Writer, s string) {
	_, _ = fmt.Fprintln(w, s)
}
