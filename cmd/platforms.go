package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umsgroup/adreal-sync/pkg/adreal"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the platforms available on the configured market",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		username, password, err := credentials(ctx, cfg)
		if err != nil {
			return err
		}

		opts := []adreal.Option{}
		if cfg.AdReal.BaseURL != "" {
			opts = append(opts, adreal.WithBaseURL(cfg.AdReal.BaseURL))
		}
		client := adreal.NewClient(username, password, cfg.AdReal.Market, opts...)
		if err := client.Login(ctx); err != nil {
			return err
		}

		platforms, err := client.FetchPlatforms(ctx)
		if err != nil {
			return err
		}
		for _, p := range platforms {
			fmt.Printf("%d\t%s\t%s\n", p.ID, p.Code, p.Label)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
