package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/doorman/internal/api"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the HTTP API",
		Long: `Issue a signed operator token. The token lets its holder list devices,
decide pending approvals and lock the door through the HTTP API.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.Security.JWT.Secret == "" {
				return errors.New("security.jwt.secret is not set")
			}
			if ttl == 0 {
				ttl = cfg.Security.JWT.TokenTTL
			}
			if ttl < 0 {
				return errors.New("--ttl must be positive")
			}

			token, err := api.IssueToken(cfg.Security.JWT.Secret, subject, cfg.Site.ID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject, usually the operator's name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default security.jwt.token_ttl)")
	return cmd
}
