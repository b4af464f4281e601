package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pgschema "github.com/pazars/postgres-context-server"
)

func newSchemaCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [table]",
		Short: "Print CREATE TABLE statements for one table, or all tables",
		Long: "Prints the rendered schema of the named table. Without an argument, or with\n" +
			"all-tables, prints every table.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeSession, err := loadSession(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer closeSession()

			resp, err := s.router.Dispatch(cmd.Context(), schemaRequest(args))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return err
		},
	}
}

// schemaRequest maps the command arguments onto a schema tool call.
func schemaRequest(args []string) pgschema.Request {
	arguments := map[string]string{pgschema.ArgMode: pgschema.ModeAll}
	if len(args) == 1 && args[0] != string(pgschema.AllTables) {
		arguments = map[string]string{pgschema.ArgMode: pgschema.ModeSpecific, pgschema.ArgTableName: args[0]}
	}
	return pgschema.Request{Op: pgschema.OpCallTool, Name: pgschema.SchemaToolName, Arguments: arguments}
}
