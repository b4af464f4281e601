package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const serverName = "postgres-context-server"

var version = "dev"

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   serverName,
		Short: "Read-only PostgreSQL schema server for MCP clients",
		Long: "Serves the schema of the PostgreSQL database named by DATABASE_URL over MCP on stdio:\n" +
			"per-table schema resources, a pg-schema tool and prompt rendering CREATE TABLE\n" +
			"statements, and table name completion. Running without a subcommand serves.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), envFile, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading the environment (ignored if missing)")

	rootCmd.AddCommand(
		newServeCmd(&envFile),
		newDoctorCmd(&envFile),
		newTablesCmd(&envFile),
		newSchemaCmd(&envFile),
		newConfigureCmd(&envFile),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", serverName, version)
			return nil
		},
	}
}
