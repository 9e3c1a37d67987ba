package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/umsgroup/adreal-sync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "adreal-sync",
	Short: "Monthly AdReal competitive ad-exposure sync",
	Long:  "Fetches ad-exposure statistics from the Gemius AdReal API, reconciles them against the brand and publisher catalogs, and replaces the reporting month's partition in the warehouse.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
