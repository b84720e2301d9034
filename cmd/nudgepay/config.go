package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eshaffer321/nudgepay-go/internal/broker"
	"github.com/eshaffer321/nudgepay-go/pkg/nessie"
)

// addGatewayFlags adds the credential flags shared by gateway commands.
// Several commands own these flags, so binding waits until one of them runs.
func addGatewayFlags(cmd *cobra.Command) {
	cmd.Flags().String("api-key", "", "Nessie API key")
	cmd.Flags().String("account-id", "", "Nessie account ID")
	cmd.Flags().String("merchant-id", "", "Nessie merchant ID")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		for key, flag := range map[string]string{
			"nessie.api_key":     "api-key",
			"nessie.account_id":  "account-id",
			"nessie.merchant_id": "merchant-id",
		} {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
		}
		return nil
	}
}

func configuredCredentials() nessie.Credentials {
	return nessie.Credentials{
		APIKey:     viper.GetString("nessie.api_key"),
		AccountID:  viper.GetString("nessie.account_id"),
		CustomerID: viper.GetString("nessie.customer_id"),
		MerchantID: viper.GetString("nessie.merchant_id"),
	}
}

// applyGatewayConfig merges configured credentials into the stored config.
// Empty settings leave stored values alone.
func applyGatewayConfig(ctx context.Context, rt *runtime) error {
	creds := configuredCredentials()
	if creds == (nessie.Credentials{}) {
		return nil
	}
	_, err := rt.send(ctx, broker.TypeSetConfig, creds)
	return err
}
