package commands

import (
	"commitlens/internal/config"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func NewMappingsCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage personal-to-corporate email mappings",
	}
	cmd.AddCommand(
		newMappingsListCommand(o),
		newMappingsAddCommand(o),
		newMappingsRemoveCommand(o),
		newMappingsImportCommand(o),
	)
	return cmd
}

func newMappingsListCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printMappings(cmd.OutOrStdout(), openConfig(o).AllMappings())
			return nil
		},
	}
}

func newMappingsAddCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <from> <to>",
		Short: "Map a personal address to a corporate one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return openConfig(o).AddMapping(args[0], args[1], true)
		},
	}
}

func newMappingsRemoveCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <from>",
		Short: "Delete a mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := openConfig(o).RemoveMapping(args[0], true)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no mapping for %s", args[0])
			}
			return nil
		},
	}
}

func newMappingsImportCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yml>",
		Short: "Add every mapping listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()
			n, err := config.ImportMappings(openConfig(o), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d mappings\n", n)
			return nil
		},
	}
}

func printMappings(w io.Writer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s -> %s\n", k, m[k])
	}
}
