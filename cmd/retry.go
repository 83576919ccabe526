package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/starzmeet/listing-agent/internal/notify"
)

var (
	retryPlaceID string
	retryWebsite string
	retryAddress string
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-run enrichment for a single stored place",
	Long: `Re-run website enrichment and normalization for one stored place,
replacing its record. Use --website to override the stored website URL,
for example after the site came back online.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runner, err := initRunner(st, notify.LogNotifier{})
		if err != nil {
			return err
		}

		rec, err := runner.RetryPlace(ctx, retryPlaceID, retryWebsite, retryAddress)
		if err != nil {
			return eris.Wrap(err, "retry")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	retryCmd.Flags().StringVar(&retryPlaceID, "place-id", "", "Google place ID (required)")
	retryCmd.Flags().StringVar(&retryWebsite, "website", "", "override the website URL")
	retryCmd.Flags().StringVar(&retryAddress, "address", "", "override the formatted address")
	_ = retryCmd.MarkFlagRequired("place-id")
	rootCmd.AddCommand(retryCmd)
}
