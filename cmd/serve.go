package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/daybook/daybook/internal/app"
	"github.com/daybook/daybook/pkg/logger"
)

type ServeOptions struct {
	Options
	Port        string
	AutoMigrate bool
}

func (o *ServeOptions) AddFlags(flagSet *pflag.FlagSet) {
	o.Options.AddFlags(flagSet)
	flagSet.StringVarP(&o.Port, "port", "p", "", "override SERVER_PORT")
	flagSet.BoolVar(&o.AutoMigrate, "auto-migrate", true, "create tables and indexes before serving")
}

func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the journal HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Serve(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Serve(opts *ServeOptions) error {
	cfg, closer, err := opts.setup()
	if err != nil {
		return err
	}
	defer closer.Close()
	if opts.Port != "" {
		cfg.Server.Port = opts.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.AutoMigrate {
		if err := a.Migrate(ctx); err != nil {
			logger.Errorf("migration failed: %v", err)
			return err
		}
	}
	return a.Serve(ctx)
}
