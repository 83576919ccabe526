package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage the search keywords used by discovery",
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all search keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		kws, err := st.ListKeywords(ctx)
		if err != nil {
			return eris.Wrap(err, "keywords list")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(kws)
	},
}

var (
	keywordAddCategory string
)

var keywordsAddCmd = &cobra.Command{
	Use:   "add <keyword>",
	Short: "Add a search keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		kw, err := st.AddKeyword(ctx, args[0], keywordAddCategory)
		if err != nil {
			return eris.Wrap(err, "keywords add")
		}

		zap.L().Info("keyword added",
			zap.Int64("id", kw.ID),
			zap.String("keyword", kw.Keyword),
			zap.String("category", kw.Category),
		)
		return nil
	},
}

var (
	keywordUpdateID       int64
	keywordUpdateKeyword  string
	keywordUpdateCategory string
	keywordUpdateActive   bool
)

var keywordsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a search keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var (
			keyword  *string
			category *string
			active   *bool
		)
		if cmd.Flags().Changed("keyword") {
			keyword = &keywordUpdateKeyword
		}
		if cmd.Flags().Changed("category") {
			category = &keywordUpdateCategory
		}
		if cmd.Flags().Changed("active") {
			active = &keywordUpdateActive
		}
		if keyword == nil && category == nil && active == nil {
			return eris.New("keywords update: nothing to change")
		}

		if err := st.UpdateKeyword(ctx, keywordUpdateID, keyword, category, active); err != nil {
			return eris.Wrap(err, "keywords update")
		}

		zap.L().Info("keyword updated", zap.Int64("id", keywordUpdateID))
		return nil
	},
}

var keywordDeleteID int64

var keywordsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a search keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteKeyword(ctx, keywordDeleteID); err != nil {
			return eris.Wrap(err, "keywords delete")
		}

		zap.L().Info("keyword deleted", zap.Int64("id", keywordDeleteID))
		return nil
	},
}

func init() {
	keywordsAddCmd.Flags().StringVar(&keywordAddCategory, "category", "", "keyword category, e.g. \"Autism Core\"")
	keywordsUpdateCmd.Flags().Int64Var(&keywordUpdateID, "id", 0, "keyword ID (required)")
	keywordsUpdateCmd.Flags().StringVar(&keywordUpdateKeyword, "keyword", "", "new keyword text")
	keywordsUpdateCmd.Flags().StringVar(&keywordUpdateCategory, "category", "", "new category")
	keywordsUpdateCmd.Flags().BoolVar(&keywordUpdateActive, "active", true, "activate or deactivate")
	_ = keywordsUpdateCmd.MarkFlagRequired("id")
	keywordsDeleteCmd.Flags().Int64Var(&keywordDeleteID, "id", 0, "keyword ID (required)")
	_ = keywordsDeleteCmd.MarkFlagRequired("id")

	keywordsCmd.AddCommand(keywordsListCmd, keywordsAddCmd, keywordsUpdateCmd, keywordsDeleteCmd)
	rootCmd.AddCommand(keywordsCmd)
}
