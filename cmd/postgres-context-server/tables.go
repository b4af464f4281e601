package main

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	pgschema "github.com/pazars/postgres-context-server"
)

func newTablesCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and their schema resource URIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, closeSession, err := loadSession(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer closeSession()

			resp, err := s.router.Dispatch(cmd.Context(), pgschema.Request{Op: pgschema.OpListResources})
			if err != nil {
				return err
			}
			printResources(cmd.OutOrStdout(), resp.Resources)
			return nil
		},
	}
}

func printResources(w io.Writer, resources []pgschema.ResourceEntry) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(true)
	table.SetHeader([]string{"Resource", "URI", "MIME Type"})
	for _, r := range resources {
		table.Append([]string{r.Name, r.URI, r.MIMEType})
	}
	table.Render()
}
