package main

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
	"github.com/eshaffer321/nudgepay-go/internal/observer"
	"github.com/eshaffer321/nudgepay-go/internal/preview"
)

func checkoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Predict and simulate a checkout",
		Long: `Predict the budget left after a checkout and optionally simulate the
purchase in the Nessie sandbox.

With --file and --url the total is detected from a saved page and the
prediction is shown; add --confirm to submit it. With --amount the purchase
is submitted directly.

Examples:
  nudgepay checkout --file checkout.html --url https://www.amazon.com/gp/buy/spc
  nudgepay checkout --file checkout.html --url https://www.amazon.com/gp/buy/spc --confirm
  nudgepay checkout --amount 19.99 --vendor "Uber Eats"`,
		RunE: runCheckout,
	}

	cmd.Flags().String("file", "", "saved checkout page")
	cmd.Flags().String("url", "", "address the page was saved from")
	cmd.Flags().Bool("confirm", false, "submit the predicted purchase")
	cmd.Flags().String("amount", "", "purchase amount, skips detection")
	cmd.Flags().String("vendor", "", "vendor name for --amount")
	addGatewayFlags(cmd)

	return cmd
}

func runCheckout(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	file, _ := cmd.Flags().GetString("file")
	pageURL, _ := cmd.Flags().GetString("url")
	confirm, _ := cmd.Flags().GetBool("confirm")
	rawAmount, _ := cmd.Flags().GetString("amount")
	vendor, _ := cmd.Flags().GetString("vendor")

	if rawAmount == "" && (file == "" || pageURL == "") {
		return fmt.Errorf("either --amount or both --file and --url are required")
	}

	rt, err := startRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := applyGatewayConfig(ctx, rt); err != nil {
		return err
	}

	if rawAmount != "" {
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", rawAmount, err)
		}
		resp, err := rt.send(ctx, broker.TypeCheckout, broker.CheckoutPayload{Amount: amount, Vendor: vendor})
		if err != nil {
			return err
		}
		printOut(cmd.OutOrStdout(), renderSummary(resp.Summary))
		return nil
	}

	page, err := loadPage(file, pageURL)
	if err != nil {
		return err
	}
	agent := observer.New(observer.Options{Page: page, State: rt.state, Logger: slog.Default()})
	popup := preview.New(rt.state, rt.broker, agent, slog.Default())

	pred := popup.Preview(ctx)
	printOut(cmd.OutOrStdout(), renderPrediction(pred))
	if !pred.Ready || !confirm {
		return nil
	}

	status, err := popup.Confirm(ctx, pred)
	if err != nil {
		return err
	}
	printOut(cmd.OutOrStdout(), goodStyle.Render(status))
	return nil
}
