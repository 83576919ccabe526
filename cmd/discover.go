package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/notify"
)

var (
	discoverLocation string
	discoverMax      int
	discoverJSON     bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover and enrich listings for a location",
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

		max := discoverMax
		if max == 0 {
			max = cfg.Discovery.MaxResults
		}

		result, err := runner.Run(ctx, discoverLocation, max)
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		zap.L().Info("discover complete",
			zap.String("location", result.Location),
			zap.Int("new", result.NewCount),
			zap.Int("total", result.Total),
		)

		if discoverJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverLocation, "location", "", "search location, e.g. \"Frisco, TX\" (required)")
	discoverCmd.Flags().IntVar(&discoverMax, "max-results", 0, "cap on new places (default from config)")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "print the full run result as JSON")
	_ = discoverCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(discoverCmd)
}
