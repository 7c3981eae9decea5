package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/daybook/daybook/cmd"
)

func main() {
	root := &cobra.Command{
		Use:   "daybook",
		Short: "personal journal service",
		Run: func(c *cobra.Command, args []string) {
			_ = c.Help()
		},
	}
	root.AddCommand(cmd.NewServeCommand(), cmd.NewMigrateCommand(), cmd.NewTokenCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
