package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "listing-agent",
	Short: "Autism service listing discovery and CMS sync pipeline",
	Long:  "Discovers autism-related businesses via Google Places, enriches them from their websites with Claude, and syncs the results to a ListingPro WordPress site.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
