package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/explorer"
	"github.com/tfkr-ae/explorer/api"
	"github.com/tfkr-ae/explorer/domain"
	"github.com/tfkr-ae/explorer/refresh"
)

type refreshResult struct {
	Resource   string `json:"resource" yaml:"resource"`
	Status     string `json:"status" yaml:"status"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

// NewRefreshCommand creates the refresh command and its resource subcommands.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Ask the catalog service to refresh a resource",
		Long: `Ask the catalog service to refresh a resource.

The command waits for the refresh to finish and reports the outcome.

Examples:
  explorer refresh navigation
  explorer refresh category fiction
  explorer refresh product 42`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "navigation",
		Short:        "Refresh the top-level category list",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd, rootOpts, func(ctx context.Context, exp *explorer.Explorer) (*refresh.Coordinator, error) {
				return exp.NavigationRefresher()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "category <slug>",
		Short:        "Refresh the products of a category",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			return runRefresh(cmd, rootOpts, func(ctx context.Context, exp *explorer.Explorer) (*refresh.Coordinator, error) {
				// the refresh endpoint is addressed by id, the slug resolves it
				snapshot, err := exp.Get(ctx, api.CategoryPath(slug))
				if err != nil {
					return nil, fmt.Errorf("resolving category %s : %w", slug, err)
				}
				var category domain.Category
				if err := snapshot.Decode(&category); err != nil {
					return nil, fmt.Errorf("resolving category %s : %w", slug, err)
				}
				return exp.CategoryRefresher(category.ID.String(), slug)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "product <id>",
		Short:        "Load the full details and reviews of a product",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd, rootOpts, func(ctx context.Context, exp *explorer.Explorer) (*refresh.Coordinator, error) {
				return exp.ProductRefresher(args[0])
			})
		},
	})

	return cmd
}

func runRefresh(cmd *cobra.Command, opts *RootOptions, coordinatorFor func(context.Context, *explorer.Explorer) (*refresh.Coordinator, error)) error {
	exp, closeAll, err := opts.open()
	if err != nil {
		return err
	}
	defer closeAll()

	ctx := cmd.Context()
	coordinator, err := coordinatorFor(ctx, exp)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := coordinator.Refresh(ctx); err != nil {
		return err
	}

	result := refreshResult{
		Resource:   coordinator.Key(),
		Status:     refresh.Succeeded.String(),
		DurationMS: time.Since(start).Milliseconds(),
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Print(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "refreshed %s in %dms\n", result.Resource, result.DurationMS)
		return err
	})
}
