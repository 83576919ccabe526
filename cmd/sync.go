package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/cms"
	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/internal/notify"
)

var (
	syncMode     string
	syncLocation string
	syncPlaceIDs string
	syncBulk     bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push stored listings to the ListingPro CMS",
	Long: `Push stored listings to the ListingPro CMS.

By default all unsynced records are pushed. Use --place-ids for a specific
subset or --location to restrict to one search location. --mode controls what
happens when a listing already exists on the site: skip it, update it in
place, or force a fresh create without checking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		modeStr := syncMode
		if modeStr == "" {
			modeStr = cfg.Sync.Mode
		}
		mode, err := cms.ParseMode(modeStr)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		syncer, err := initSyncer(st, notify.LogNotifier{})
		if err != nil {
			return err
		}

		var records []model.StoredRecord
		switch {
		case syncPlaceIDs != "":
			ids := splitAndTrim(syncPlaceIDs)
			records, err = st.RecordsByIDs(ctx, ids)
		case syncLocation != "":
			var all []model.StoredRecord
			all, err = st.All(ctx)
			for _, sr := range all {
				if strings.Contains(strings.ToLower(sr.Location), strings.ToLower(syncLocation)) {
					records = append(records, sr)
				}
			}
		default:
			records, err = st.UnsyncedRecords(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "sync: load records")
		}

		useBulk := syncBulk || cfg.Sync.UseBulkEndpoint
		tally, err := syncer.SyncBatch(ctx, records, mode, useBulk)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		zap.L().Info("sync complete",
			zap.Int("total", tally.Total),
			zap.Int("synced", tally.Synced),
			zap.Int("skipped", tally.Skipped),
			zap.Int("failed", tally.Failed),
			zap.String("method", tally.Method),
		)
		for _, se := range tally.Errors {
			zap.L().Warn("sync failure", zap.String("place", se.Place), zap.String("error", se.Error))
		}
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show CMS sync coverage of the stored records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.SyncStatus(ctx)
		if err != nil {
			return eris.Wrap(err, "sync status")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	},
}

// splitAndTrim splits a comma-separated flag value, dropping empty entries.
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	syncCmd.Flags().StringVar(&syncMode, "mode", "", "existing-listing handling: skip, update, force (default from config)")
	syncCmd.Flags().StringVar(&syncLocation, "location", "", "restrict to records from one search location")
	syncCmd.Flags().StringVar(&syncPlaceIDs, "place-ids", "", "comma-separated place IDs to sync")
	syncCmd.Flags().BoolVar(&syncBulk, "bulk", false, "try the bulk create endpoint first")
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}
