package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	clearLocation string
	clearAll      bool
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete stored listing records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if clearLocation == "" && !clearAll {
			return eris.New("clear: pass --location or --all")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var deleted int64
		if clearAll {
			deleted, err = st.DeleteAll(ctx)
		} else {
			deleted, err = st.DeleteByLocation(ctx, clearLocation)
		}
		if err != nil {
			return eris.Wrap(err, "clear")
		}

		zap.L().Info("clear complete",
			zap.Int64("deleted", deleted),
			zap.String("location", clearLocation),
			zap.Bool("all", clearAll),
		)
		return nil
	},
}

func init() {
	clearCmd.Flags().StringVar(&clearLocation, "location", "", "delete records from one search location")
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "delete every stored record")
	rootCmd.AddCommand(clearCmd)
}
