package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/umsgroup/adreal-sync/internal/pipeline"
	"github.com/umsgroup/adreal-sync/internal/warehouse"
)

var runClient string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync the previous reporting month into the warehouse",
	Long:  "Fetches the previous calendar month for each configured client profile, reconciles and normalizes the data, and replaces that month's partition in the client's warehouse table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		month := pipeline.PreviousMonth(time.Now().UTC())
		return syncMonth(cmd, month, runClient)
	},
}

func init() {
	runCmd.Flags().StringVar(&runClient, "client", "", "client profile to sync (default: all configured clients)")
	rootCmd.AddCommand(runCmd)
}

// syncMonth runs the full pipeline and warehouse load for one reporting
// month across the selected client profiles.
func syncMonth(cmd *cobra.Command, month pipeline.ReportingMonth, clientName string) error {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("month", month.String()))

	clients, err := selectClients(cfg, clientName)
	if err != nil {
		return err
	}

	runner, err := buildRunner(ctx, cfg)
	if err != nil {
		return err
	}

	pool, err := warehouse.Connect(ctx, cfg.Warehouse.DatabaseURL, cfg.Warehouse.MaxConns, cfg.Warehouse.MinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	var failed []string
	for name, cc := range clients {
		clog := log.With(zap.String("client", name))
		clog.Info("client sync starting")

		res, err := runner.Run(ctx, cc, month)
		if err != nil {
			clog.Error("client sync failed", zap.Error(err))
			failed = append(failed, name)
			continue
		}

		loader := warehouse.NewLoader(pool, cc.Table, warehouse.Schema{
			KeepProduct:    cc.KeepProduct,
			DropMediaOwner: cc.DropMediaOwner,
		})
		n, err := loader.ReplaceMonths(ctx, res.Rows)
		if err != nil {
			clog.Error("warehouse load failed", zap.Error(err))
			failed = append(failed, name)
			continue
		}
		clog.Info("client sync complete", zap.Int64("rows_loaded", n))
	}

	if len(failed) > 0 {
		return eris.Errorf("sync failed for clients %v", failed)
	}
	return nil
}
