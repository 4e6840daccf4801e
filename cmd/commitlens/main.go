// Package main is the commitlens CLI: a local employee directory cache and commit correlator.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"commitlens/cmd/commitlens/commands"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debugf("no dotenv file loaded from %s", envFile)
	}
	commands.ConfigureLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	var opts commands.Options
	rootCmd := &cobra.Command{
		Use:   "commitlens",
		Short: "Employee directory cache and commit correlation for Git history",
		Long: `commitlens keeps a local, periodically refreshed copy of the employee directory
and joins commits with their authors and referenced tickets.

Commands:
  serve      Run the local HTTP API
  lookup     Resolve an email to an employee
  refresh    Force a full directory refresh
  clear      Drop the cached directory
  mappings   Manage personal-to-corporate email mappings`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.Bind(rootCmd)

	rootCmd.AddCommand(commands.NewServeCommand(&opts))
	rootCmd.AddCommand(commands.NewLookupCommand(&opts))
	rootCmd.AddCommand(commands.NewRefreshCommand(&opts))
	rootCmd.AddCommand(commands.NewClearCommand(&opts))
	rootCmd.AddCommand(commands.NewMappingsCommand(&opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
