package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/nudgepay-go/internal/extract"
	"github.com/eshaffer321/nudgepay-go/internal/observer"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Find the checkout total in a saved page",
		Long: `Run the checkout total extractor against a saved HTML page.

The vendor profile is chosen from --url, so pass the address the page was
saved from.

Examples:
  nudgepay detect --file checkout.html --url https://www.amazon.com/gp/buy/spc
  nudgepay detect --file cart.html --url https://www.ubereats.com/checkout --json`,
		RunE: runDetect,
	}

	cmd.Flags().String("file", "", "saved HTML page")
	cmd.Flags().String("url", "", "address the page was saved from")
	cmd.Flags().Bool("json", false, "print JSON instead of styled output")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func runDetect(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	pageURL, _ := cmd.Flags().GetString("url")
	asJSON, _ := cmd.Flags().GetBool("json")

	detected, err := detectFile(file, pageURL)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detected)
	}
	printOut(cmd.OutOrStdout(), renderDetected(detected))
	return nil
}

func loadPage(file, pageURL string) (*observer.StaticPage, error) {
	html, err := os.ReadFile(filepath.Clean(file)) // #nosec G304 -- page path supplied by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return observer.NewStaticPage(pageURL, string(html)), nil
}

func detectFile(file, pageURL string) (extract.DetectedTotal, error) {
	page, err := loadPage(file, pageURL)
	if err != nil {
		return extract.DetectedTotal{}, err
	}
	agent := observer.New(observer.Options{Page: page, Logger: slog.Default()})
	return agent.DetectTotal(), nil
}
