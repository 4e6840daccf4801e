package commands

import (
	"commitlens/internal/types"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func NewLookupCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <email>...",
		Short: "Resolve email addresses to employees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := NewApp(ctx, o)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer app.Close(ctx)

			out := make(map[string]*types.EmployeeRecord, len(args))
			for _, email := range args {
				rec, _ := app.Directory.Lookup(ctx, email)
				out[email] = rec
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
