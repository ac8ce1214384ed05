package commands

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/lbsync/internal/app"
)

// Serve returns the long-running command.
func Serve() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Subscribe to platform events and serve the HTTP endpoints",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := app.New(cmd.Context())
	if err != nil {
		return err
	}
	return a.Run()
}
