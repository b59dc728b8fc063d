// Package cli defines the gridsim command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel  string
	LogFormat string
}

// validLevels are the accepted --log-level values.
var validLevels = []string{"debug", "info", "warn", "error"}

// NewRootCommand creates the root command for the gridsim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gridsim",
		Short: "gridsim - time-domain power system simulation core",
		Long: "A time-domain power system simulator built on a reactive attribute graph,\n" +
			"a per-step task scheduler and a concurrent external interface protocol.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidLevel(opts.LogLevel) {
				return fmt.Errorf("invalid log-level %q: must be one of %v", opts.LogLevel, validLevels)
			}
			if opts.LogFormat != "text" && opts.LogFormat != "json" {
				return fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", opts.LogFormat)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "logging level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log output format (text|json)")

	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

func isValidLevel(level string) bool {
	for _, l := range validLevels {
		if l == level {
			return true
		}
	}
	return false
}
