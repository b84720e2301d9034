package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eshaffer321/nudgepay-go/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the broker and its HTTP front",
		Long: `Run the reconciliation broker with an HTTP front.

Endpoints:
  POST /v1/messages        broker requests ({"type": ..., "payload": ...})
  POST /v1/detect?url=...  detect the checkout total in posted page markup
  GET  /v1/stream?url=...  server-sent broker broadcasts for a page
  GET  /v1/events          recent broadcasts
  GET  /v1/status          subscriber and event counts
  GET  /healthz`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8787)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := startRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := applyGatewayConfig(ctx, rt); err != nil {
		return err
	}

	svc := server.New(server.Config{
		Addr:   viper.GetString("server.addr"),
		Logger: slog.Default(),
	}, rt.broker, rt.bus, rt.state)

	return svc.Run(ctx)
}
