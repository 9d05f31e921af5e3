// Package cmd defines and implements the CLI commands for the
// standards-sync executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standards-sync",
		Short: "Keeps a local PDF corpus synchronized, chunked, and indexed",
		Long: `standards-sync mirrors the PDF documents linked from a listing page
(by default the Queensland Recognised standards index), detects changes
cheaply via HTTP headers, verifies them by content hash, and pushes
page-tagged text chunks to an indexing gateway. Unchanged documents are
never re-downloaded or re-embedded.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; env vars use the SYNC_ prefix)")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newIngestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
