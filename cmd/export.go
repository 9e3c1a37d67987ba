package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/umsgroup/adreal-sync/internal/export"
)

var (
	exportClient string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <year> <month>",
	Short: "Export merged rows to a spreadsheet instead of the warehouse",
	Long:  "Fetches and reconciles one reporting month for a client profile and writes the merged rows to an .xlsx or .csv file for manual inspection.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		month, err := parseMonthArgs(args[0], args[1])
		if err != nil {
			return err
		}
		cc, err := cfg.Client(exportClient)
		if err != nil {
			return err
		}

		runner, err := buildRunner(ctx, cfg)
		if err != nil {
			return err
		}

		merged, probeRes, err := runner.FetchMerged(ctx, cc, month)
		if err != nil {
			return err
		}
		if probeRes != nil && len(probeRes.Forbidden) > 0 {
			zap.L().Warn("brands excluded by permission probe",
				zap.Strings("brand_ids", probeRes.Forbidden))
		}

		switch {
		case strings.HasSuffix(exportOut, ".xlsx"):
			err = export.WriteXLSX(exportOut, merged)
		case strings.HasSuffix(exportOut, ".csv"):
			err = export.WriteCSV(exportOut, merged)
		default:
			return eris.Errorf("unsupported output format %q (want .xlsx or .csv)", exportOut)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("file", exportOut),
			zap.Int("rows", len(merged)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportClient, "client", "", "client profile to export")
	exportCmd.Flags().StringVar(&exportOut, "out", "adreal.xlsx", "output file (.xlsx or .csv)")
	_ = exportCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(exportCmd)
}
