package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/doorman/internal/access"
)

func newDaemonCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the access protocol until stopped",
		Long: `Lock the door, then repeatedly wait for a registered device, ask for
approval and open. Denied attempts are retried after manager.reauthorize_timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), c)
		},
	}
}

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single detect, authenticate and open attempt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), c)
		},
	}
}

func runDaemon(ctx context.Context, c *cli) error {
	a, err := startApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.close()

	a.log.Info("doorman started", "site", a.cfg.Site.ID,
		"detector", a.cfg.Detector.Backend,
		"authenticator", a.cfg.Authenticator.Backend,
		"actuator", a.cfg.Actuator.Backend,
		"locker", a.cfg.Locker.Backend,
	)

	err = a.manager.Daemon(ctx)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		a.log.Info("shutdown signal received")
		return nil
	}
	return err
}

func runOnce(ctx context.Context, c *cli) error {
	a, err := startApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.manager.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, result)
	if result != access.Allow {
		a.log.Info("access denied")
	}
	return nil
}

func startApp(ctx context.Context, c *cli) (*app, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return newApp(ctx, cfg, c.in, c.out)
}
