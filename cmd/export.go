package main

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/export"
	"github.com/starzmeet/listing-agent/internal/model"
)

var (
	exportLocation string
	exportStatus   string
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored listings as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stored, err := st.All(ctx)
		if err != nil {
			return eris.Wrap(err, "export: load records")
		}

		var records []model.ListingRecord
		for _, sr := range stored {
			if exportLocation != "" && !strings.Contains(strings.ToLower(sr.Location), strings.ToLower(exportLocation)) {
				continue
			}
			if exportStatus != "" && !strings.EqualFold(sr.Record.Status, exportStatus) {
				continue
			}
			records = append(records, sr.Record)
		}

		var w io.Writer = os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrapf(err, "export: create %s", exportOut)
			}
			defer f.Close()
			w = f
		}

		if err := export.WriteCSV(w, records); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.Int("records", len(records)),
			zap.String("out", exportOut),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportLocation, "location", "", "restrict to records from one search location")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "restrict to one status: New or Old")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
