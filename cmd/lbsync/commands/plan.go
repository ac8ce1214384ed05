package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/lbsync/internal/app"
	"github.com/MrSnakeDoc/lbsync/internal/reconciler"
)

// Plan returns the dry-run command.
func Plan() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the service links and certificates a pass would push",
		Long: `Scan the fleet and print the desired load balancer state without writing
anything. Services skipped because of invalid labels are listed too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "yaml" && output != "json" {
				return fmt.Errorf("unsupported output format %q (want yaml or json)", output)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				plan, err := a.Plan(ctx)
				if err != nil {
					return err
				}
				return writePlan(cmd.OutOrStdout(), plan, output)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")

	return cmd
}

func writePlan(w io.Writer, plan *reconciler.Plan, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
