package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewRefreshCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the full directory now, waiting for any refresh in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := NewApp(ctx, o)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer app.Close(ctx)

			if err := app.Directory.ForceRefresh(ctx); err != nil {
				return err
			}
			st := app.Directory.Stats()
			fmt.Fprintf(os.Stdout, "refreshed %d employees at %s\n", st.Entries, st.LastRefresh.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func NewClearCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop the cached directory so the next lookup refetches it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := NewApp(ctx, o)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer app.Close(ctx)
			return app.Directory.Clear(ctx)
		},
	}
}
