// Package commands provides the CLI command implementations for stoat.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-stoat/cli/styles"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	noColor    bool
	logLevel   string
}

// NewRootCommand creates the root command for the stoat CLI
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "stoat",
		Short: "Event-sourced aggregates for Go",
		Long: `Stoat runs event-sourced aggregates against an in-memory, PostgreSQL or
Redis event stream.

` + styles.Title.Render("Quick Start:") + `

  ` + styles.Code.Render("stoat init") + `                     Write a stoat.yaml
  ` + styles.Code.Render("stoat migrate") + `                  Create the PostgreSQL schema
  ` + styles.Code.Render("stoat account open acc-1") + `       Open a bank account
  ` + styles.Code.Render("stoat account credit acc-1 500") + ` Pay 5.00 into it
  ` + styles.Code.Render("stoat account show acc-1") + `       Show its balance`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				styles.DisableColors()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to stoat.yaml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newAccountCommand(opts))
	rootCmd.AddCommand(NewVersionCommand(Version, Commit, BuildDate))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.FormatError(err.Error()))
		return err
	}

	return nil
}
