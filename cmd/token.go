package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/daybook/daybook/internal/models"
	"github.com/daybook/daybook/internal/tokens"
)

type TokenOptions struct {
	Options
	Sub   string
	Name  string
	Email string
	TTL   time.Duration
}

func (o *TokenOptions) AddFlags(flagSet *pflag.FlagSet) {
	o.Options.AddFlags(flagSet)
	flagSet.StringVar(&o.Sub, "sub", "", "subject (owner id) of the token")
	flagSet.StringVar(&o.Name, "name", "", "name claim")
	flagSet.StringVar(&o.Email, "email", "", "email claim")
	flagSet.DurationVar(&o.TTL, "ttl", 0, "lifetime (default JWT_ACCESS_TOKEN_TTL)")
}

// NewTokenCommand mints an HS256 token for local use when no OIDC provider is configured.
func NewTokenCommand() *cobra.Command {
	opts := &TokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "print a signed access token for --sub",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := opts.setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			tok, err := tokens.GenerateAccessToken(cfg, &models.User{Sub: opts.Sub, Name: opts.Name, Email: opts.Email}, opts.TTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	opts.AddFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
