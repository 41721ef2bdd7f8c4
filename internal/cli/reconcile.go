package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [articleId]",
	Short: "Repair comment counters and child indexes",
	Long: `reconcile recomputes the comment counter of an article from its live
comments and rewrites child indexes that disagree with the parent links.
Without an argument every article is reconciled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.close(context.WithoutCancel(ctx))

		if len(args) == 1 {
			rep, err := a.svc.Reconcile(ctx, args[0])
			if err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), []model.ReconcileReport{rep}, nil)
		}

		reports, err := a.svc.ReconcileAll(ctx)
		return printReports(cmd.OutOrStdout(), reports, err)
	},
}

// printReports writes whatever was reconciled, including the articles that
// succeeded before a failure, and then returns failed.
func printReports(w io.Writer, reports []model.ReconcileReport, failed error) error {
	if reports == nil {
		reports = []model.ReconcileReport{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return errors.Join(failed, err)
	}
	return failed
}
