package cli

import (
	"github.com/spf13/cobra"

	"github.com/nhle/clinic-chat/internal/app"
)

func newTUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the chat in the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}
	addRoomFlags(cmd)
	return cmd
}

func runTUI(cmd *cobra.Command, _ []string) error {
	room, err := roomFromFlags(cmd)
	if err != nil {
		return err
	}

	rt, err := loadRuntime(cmd, runtimeOptions{logToFile: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	bridge := app.NewBridge()
	addr, _ := cmd.Flags().GetString("metrics-addr")
	engine, err := rt.newEngine(bridge, bridge, addr)
	if err != nil {
		return err
	}

	return app.Run(cmd.Context(), app.Deps{
		Engine: engine,
		Bridge: bridge,
		Store:  rt.store,
		Users:  rt.backend,
		Room:   room,
	})
}
