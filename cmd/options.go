// Package cmd holds the daybook subcommands.
package cmd

import (
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/daybook/daybook/internal/config"
	"github.com/daybook/daybook/pkg/logger"
)

// Options are shared by every subcommand.
type Options struct {
	EnvFile  string
	LogLevel string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.EnvFile, "env-file", "e", "", "load settings from this .env file (default .env)")
	flagSet.StringVar(&o.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")
}

// setup loads the configuration and points the logger at it. The returned
// closer flushes the log file, if any.
func (o *Options) setup() (*config.Config, io.Closer, error) {
	if o.EnvFile != "" {
		os.Setenv("DAYBOOK_ENV_FILE", o.EnvFile)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	logger.Init(cfg.Log.Level)
	closer := logger.UseFile(logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	return cfg, closer, nil
}
