// Package commands implements the querykit CLI.
package commands

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "querykit",
	Short: "Inspect the schema metadata querykit resolves against",
	Long: `querykit is a query-construction library; this tool dumps the schema
metadata its foreign-key resolution and decode-scope computation read from a
live database: tables, columns, primary keys and declared foreign keys.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the CLI.
func Execute() error {
	return rootCmd.Execute()
}
