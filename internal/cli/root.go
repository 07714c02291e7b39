// Package cli implements the clinicchat command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/nhle/clinic-chat/internal/model"
)

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clinicchat",
		Short:         "Real-time clinic chat in the terminal",
		Long:          "clinicchat keeps clinic chat rooms in sync with the backend and lets staff read and send messages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE:          runTUI,
	}
	cmd.PersistentFlags().String("config", model.DefaultConfigPath(), "Path to the config file")
	cmd.PersistentFlags().String("env", "", "Backend environment (dev or prod)")
	cmd.PersistentFlags().String("url", "", "RPC endpoint, overrides --env")
	cmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	addRoomFlags(cmd)

	cmd.AddCommand(
		newTUICmd(),
		newSendCmd(),
		newTailCmd(),
		newUnreadCmd(),
		newRoomsCmd(),
		newWhoamiCmd(),
		newLoginCmd(),
		newDevserverCmd(),
	)

	return cmd
}
