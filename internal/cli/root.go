// Package cli implements the backlogd command-line interface using
// Cobra. Each subcommand maps to one engine operation (add, start,
// done, next, etc.).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backlogd",
	Short: "backlogd — a single-writer task backlog engine",
	Long: `backlogd keeps a development backlog honest: one task in progress at a
time, dependencies respected, acceptance criteria gated, and every
transition on the record. Parallel work is possible, but only inside an
explicitly opened session over disjoint resource footprints.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
