package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/umsgroup/adreal-sync/internal/pipeline"
)

var backfillClient string

var backfillCmd = &cobra.Command{
	Use:   "backfill <year> <month>",
	Short: "Re-sync a specific reporting month",
	Long:  "Runs the same pipeline as 'run' for an explicit year and month. Replace-month semantics make this safe to repeat: the month's partition is rewritten, never duplicated.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		month, err := parseMonthArgs(args[0], args[1])
		if err != nil {
			return err
		}
		if err := syncMonth(cmd, month, backfillClient); err != nil {
			// Manual reruns want the full cause chain, not just the message.
			zap.L().Error("backfill failed", zap.String("trace", eris.ToString(err, true)))
			return err
		}
		return nil
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillClient, "client", "", "client profile to backfill (default: all configured clients)")
	rootCmd.AddCommand(backfillCmd)
}

func parseMonthArgs(yearArg, monthArg string) (pipeline.ReportingMonth, error) {
	year, err := strconv.Atoi(yearArg)
	if err != nil {
		return pipeline.ReportingMonth{}, eris.Wrapf(err, "parse year %q", yearArg)
	}
	month, err := strconv.Atoi(monthArg)
	if err != nil {
		return pipeline.ReportingMonth{}, eris.Wrapf(err, "parse month %q", monthArg)
	}
	return pipeline.NewReportingMonth(year, month)
}
