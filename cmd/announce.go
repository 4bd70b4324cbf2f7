package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"conference-central/announcement"
	"conference-central/database"
)

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Compute the nearly sold out announcement once and print it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		store, err := database.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		text, err := announcement.New(store, logger).Refresh(ctx)
		if err != nil {
			return err
		}
		if text == "" {
			text = "no conference is nearly sold out"
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}
