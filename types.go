package pgschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AllTables is the TableIdentifier sentinel meaning every user table.
const AllTables TableIdentifier = "all-tables"

// SchemaToolName is the name shared by the schema tool and the schema prompt.
const SchemaToolName = "pg-schema"

// ResourceMIMEType is the MIME type of every schema resource.
const ResourceMIMEType = "application/json"

var (
	// ErrValidation marks a request rejected before any catalog access.
	ErrValidation = errors.New("invalid request")

	// ErrUnknownName is returned when a tool, prompt or completion reference
	// names something this server does not expose.
	ErrUnknownName = fmt.Errorf("%w: unknown name", ErrValidation)
)

// ColumnDescriptor is one row of catalog column metadata.
type ColumnDescriptor struct {
	TableName     string  `json:"table_name" db:"table_name"`
	ColumnName    string  `json:"column_name" db:"column_name"`
	DataType      string  `json:"data_type" db:"data_type"`
	IsNullable    bool    `json:"is_nullable" db:"is_nullable"`
	ColumnDefault *string `json:"column_default" db:"column_default"`
}

// ColumnType is the narrow projection served by schema resources.
type ColumnType struct {
	ColumnName string `json:"column_name" db:"column_name"`
	DataType   string `json:"data_type" db:"data_type"`
}

// TableIdentifier names one table, or is AllTables.
type TableIdentifier string

// ParseTableIdentifier trims s and rejects empty or whitespace-only names.
func ParseTableIdentifier(s string) (TableIdentifier, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return "", fmt.Errorf("%w: table name must be non-empty", ErrValidation)
	}
	return TableIdentifier(name), nil
}

// IsAll reports whether t is the AllTables sentinel.
func (t TableIdentifier) IsAll() bool {
	return t == AllTables
}

// ResourceEntry is one advertised schema resource.
type ResourceEntry struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	Name     string `json:"name"`
}

// ResourceContent is the body of a read schema resource.
type ResourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	Text     string `json:"text"`
}

// ToolDescriptor advertises a tool and its JSON input schema.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// PromptArgument describes one prompt argument.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// PromptDescriptor advertises a prompt.
type PromptDescriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments"`
}
