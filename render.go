package pgschema

import (
	"fmt"
	"slices"
	"strings"
)

const (
	sqlFenceOpen  = "```sql\n"
	sqlFenceClose = "\n```"
)

// RenderDDL renders catalog rows as CREATE TABLE statements inside a fenced
// SQL code block. Tables appear in ascending byte order of name, columns in
// the order rows were given. An empty rows slice renders an explanatory SQL
// comment instead of an error.
func RenderDDL(rows []ColumnDescriptor, target TableIdentifier) string {
	if len(rows) == 0 {
		if target.IsAll() {
			return sqlFenceOpen + "-- No tables found in the database" + sqlFenceClose
		}
		return sqlFenceOpen + fmt.Sprintf("-- Table '%s' not found", target) + sqlFenceClose
	}

	byTable := make(map[string][]ColumnDescriptor)
	var names []string
	for _, row := range rows {
		if _, seen := byTable[row.TableName]; !seen {
			names = append(names, row.TableName)
		}
		byTable[row.TableName] = append(byTable[row.TableName], row)
	}
	slices.Sort(names)

	blocks := make([]string, len(names))
	for i, name := range names {
		blocks[i] = renderTable(name, byTable[name])
	}
	return sqlFenceOpen + strings.Join(blocks, "\n\n") + sqlFenceClose
}

func renderTable(name string, columns []ColumnDescriptor) string {
	lines := make([]string, len(columns))
	for i, col := range columns {
		lines[i] = "    " + renderColumn(col)
	}
	return "CREATE TABLE " + quoteIdent(name) + " (\n" + strings.Join(lines, ",\n") + "\n);"
}

func renderColumn(col ColumnDescriptor) string {
	var b strings.Builder
	b.WriteString(quoteIdent(col.ColumnName))
	b.WriteString(" ")
	b.WriteString(col.DataType)
	if !col.IsNullable {
		b.WriteString(" NOT NULL")
	}
	if col.ColumnDefault != nil {
		// Defaults are catalog expressions; emitted verbatim.
		b.WriteString(" DEFAULT ")
		b.WriteString(*col.ColumnDefault)
	}
	return b.String()
}

// quoteIdent double-quotes a SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
