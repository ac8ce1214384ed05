package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/lbsync/internal/app"
	"github.com/MrSnakeDoc/lbsync/internal/domain"
)

// Reconcile returns the one-shot command. It exits non-zero unless the
// pass pushed both the service links and the certificates.
func Reconcile() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run a single full reconciliation pass and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.OneShot(ctx)
				if err != nil {
					return fmt.Errorf("reconciliation failed after %d attempt(s): %w", report.Attempts, err)
				}
				if report.Outcome != domain.OutcomeDone {
					return fmt.Errorf("reconciliation ended with outcome %q", report.Outcome)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "load balancer %s: %d service links, %d certificates, %d skipped (%v)\n",
					report.LoadBalancerID, report.ServiceLinks, report.Certificates, report.Skipped, report.Duration)
				return nil
			})
		},
	}
}
