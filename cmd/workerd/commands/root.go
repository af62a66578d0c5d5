// Package commands implements workerd's cobra command tree: run starts
// the executor loop, migrate applies the durable backends' schema.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the workerd command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "workerd",
		Short: "Runs blueprint execution engine workers",
		Long: `workerd drains ready blueprint instructions from the execution
store, matches their conditions against the event bus, and invokes their
outcomes.`,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newMigrateCmd())
	return rootCmd
}
