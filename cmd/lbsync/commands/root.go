// Package commands defines the lbsync CLI.
//
// Every command reads its settings from the environment (and the optional
// LBSYNC_CONFIG_FILE); flags only shape the output.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/lbsync/internal/app"
)

// Root returns the root command. Without a subcommand it serves.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lbsync",
		Short: "Keep the platform load balancer in sync with labeled services",
		Long: `lbsync watches the platform event stream and rewrites the service links
and certificates of the "lb" service in the "utility" stack from the lb.*
labels of every service in the fleet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.AddCommand(Serve())
	cmd.AddCommand(Reconcile())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Version())

	return cmd
}

// withApp builds the application for a short-lived command, cancelled on
// SIGINT/SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
