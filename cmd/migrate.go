package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/daybook/daybook/internal/app"
	"github.com/daybook/daybook/pkg/logger"
)

func NewMigrateCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create the entry table or indexes for the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := opts.setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := context.Background()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Migrate(ctx); err != nil {
				return err
			}
			logger.Infof("migrated %s store", cfg.Store.Driver)
			return nil
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}
