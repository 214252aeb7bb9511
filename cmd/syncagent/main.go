package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/kanjou-nikki-backend/cmd/syncagent/agent"
)

func main() {
	opts := &agent.Options{}
	root := &cobra.Command{
		Use:           "syncagent",
		Short:         "Kanjou Nikki device sync agent",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	opts.AddFlags(root.PersistentFlags())

	root.AddCommand(
		agent.NewRunCommand(opts),
		agent.NewSyncCommand(opts),
		agent.NewResyncCommand(opts),
		agent.NewDeleteCommand(opts),
		agent.NewStatusCommand(opts),
		agent.NewAutoSyncCommand(opts),
		agent.NewEntryCommand(opts),
		agent.NewUserCommand(opts),
		agent.NewPINCommand(opts),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
