package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
)

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Provision a demo customer, account and merchant",
		Long: `Create a demo customer with a funded checking account and a merchant in
the Nessie sandbox, then store their IDs as the active gateway config.

Use a persistent store (--store sqlite) to keep the IDs between runs.`,
		RunE: runDemo,
	}

	addGatewayFlags(cmd)

	return cmd
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := startRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := applyGatewayConfig(ctx, rt); err != nil {
		return err
	}

	resp, err := rt.send(ctx, broker.TypeCreateDemo, nil)
	if err != nil {
		return err
	}

	if viper.GetString("store.driver") == "memory" {
		slog.Warn("Demo IDs are kept in memory only and will be lost on exit")
	}
	printOut(cmd.OutOrStdout(), renderDemo(resp.IDs))
	return nil
}
