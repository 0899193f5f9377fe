package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/doorman/internal/infrastructure/config"
)

// cli carries the flags and streams shared by every subcommand.
type cli struct {
	configPath string
	in         io.Reader
	out        io.Writer
}

func (c *cli) loadConfig() (*config.Config, error) {
	return config.Load(config.ResolvePath(c.configPath))
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{in: in, out: out}

	root := &cobra.Command{
		Use:   "doorman",
		Short: "Open the door for registered devices",
		Long: `Doorman watches for registered personal devices, asks for approval,
opens the door and waits for it to be locked again.

Running doorman without a subcommand starts the daemon.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), c)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "",
		"config file (default: $DOORMAN_CONFIG or "+config.DefaultPath+")")

	root.AddCommand(
		newDaemonCmd(c),
		newRunCmd(c),
		newDevicesCmd(c),
		newTokenCmd(c),
	)
	return root
}
