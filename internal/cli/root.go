// Package cli wires the flowbase commands.
package cli

import (
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	cfgFile  string
	logLevel string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "flowbase",
		Short: "Ingest tabular data from object storage, local files or HTTP APIs",
		Long: `flowbase retrieves tabular data from one of three sources and normalizes
it into a single table:

  s3     every .csv object under a bucket prefix, concatenated
  local  one delimited-text file
  api    a JSON array of records from a single GET request

The table is written to stdout, a rotating file, or pushed to an HTTP sink.

In compat mode (default) anticipated failures produce an empty table; strict
mode reports every failure with its kind.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default: ./flowbase.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides loglevel")

	rootCmd.AddCommand(
		NewIngestCmd(opts),
		NewValidateCmd(opts),
		NewVersionCmd(),
	)

	return rootCmd
}

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
