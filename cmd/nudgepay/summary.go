package main

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Fetch the account balance and 30-day activity",
		RunE:  runSummary,
	}

	addGatewayFlags(cmd)

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := startRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := applyGatewayConfig(ctx, rt); err != nil {
		return err
	}

	resp, err := rt.send(ctx, broker.TypeGetSummary, nil)
	if err != nil {
		return err
	}
	printOut(cmd.OutOrStdout(), renderSummary(resp.Summary))
	return nil
}
