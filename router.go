package pgschema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/pazars/postgres-context-server/internal/hint"
	"github.com/pazars/postgres-context-server/internal/redact"
)

// MaxCompletionValues is the most values a completion response carries.
const MaxCompletionValues = 100

// ErrCatalog marks failures of the underlying catalog queries.
var ErrCatalog = errors.New("catalog query failed")

// Operation is one of the fixed protocol operations the Router serves.
type Operation int

const (
	OpListResources Operation = iota + 1
	OpReadResource
	OpListTools
	OpCallTool
	OpListPrompts
	OpGetPrompt
	OpComplete
)

var operationNames = map[Operation]string{
	OpListResources: "list-resources",
	OpReadResource:  "read-resource",
	OpListTools:     "list-tools",
	OpCallTool:      "call-tool",
	OpListPrompts:   "list-prompts",
	OpGetPrompt:     "get-prompt",
	OpComplete:      "complete",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Request is one inbound operation. Only the fields relevant to Op are read.
type Request struct {
	Op Operation

	// URI is the resource to read (OpReadResource).
	URI string
	// Name is the tool (OpCallTool), prompt (OpGetPrompt) or completion
	// reference (OpComplete).
	Name string
	// Arguments are the tool or prompt arguments.
	Arguments map[string]string
	// Argument is the argument being completed (OpComplete).
	Argument CompletionArgument
}

// CompletionArgument is the partially typed argument of a completion request.
type CompletionArgument struct {
	Name  string
	Value string
}

// Completion holds completion suggestions. Total counts every candidate;
// HasMore is set when Values was truncated.
type Completion struct {
	Values  []string `json:"values"`
	Total   int      `json:"total"`
	HasMore bool     `json:"hasMore"`
}

// Response carries the result of one operation. Only the fields relevant to
// the request's Op are set.
type Response struct {
	Resources   []ResourceEntry    // OpListResources
	Contents    []ResourceContent  // OpReadResource
	Tools       []ToolDescriptor   // OpListTools
	Prompts     []PromptDescriptor // OpListPrompts
	Description string             // OpGetPrompt
	Text        string             // OpCallTool, OpGetPrompt
	Completion  *Completion        // OpComplete
}

// Router maps requests to Catalog reads and DDL rendering. It holds no
// per-request state and is safe for concurrent use.
type Router struct {
	catalog  Catalog
	baseURL  BaseURL
	redactor *redact.Redactor
	hints    *hint.Matcher
	logger   zerolog.Logger
}

// RouterOption is a functional option for NewRouter.
type RouterOption func(*Router)

// WithSecrets redacts the given literal values, typically the database
// password, from every error message the Router returns.
func WithSecrets(secrets ...string) RouterOption {
	return func(r *Router) {
		r.redactor = redact.ForSecrets(secrets...)
	}
}

// NewRouter creates a Router over catalog. baseURL derives resource URIs.
func NewRouter(catalog Catalog, baseURL BaseURL, logger zerolog.Logger, opts ...RouterOption) *Router {
	r := &Router{
		catalog:  catalog,
		baseURL:  baseURL,
		redactor: redact.ForSecrets(),
		hints:    hint.Default(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BaseURL returns the credential-free base of resource URIs.
func (r *Router) BaseURL() BaseURL {
	return r.baseURL
}

// Dispatch runs req and returns its response. Validation failures wrap
// ErrValidation and happen before any catalog access; catalog failures wrap
// ErrCatalog and never contain the database credential.
func (r *Router) Dispatch(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()
	resp, err := r.dispatch(ctx, req)

	event := r.logger.Info()
	if err != nil {
		event = r.logger.Warn().Err(err)
	}
	event.
		Str("op", req.Op.String()).
		Dur("duration", time.Since(startTime)).
		Msg("request handled")

	return resp, err
}

func (r *Router) dispatch(ctx context.Context, req Request) (*Response, error) {
	switch req.Op {
	case OpListResources:
		return r.listResources(ctx)
	case OpReadResource:
		return r.readResource(ctx, req.URI)
	case OpListTools:
		return r.listTools()
	case OpCallTool:
		return r.callTool(ctx, req.Name, req.Arguments)
	case OpListPrompts:
		return r.listPrompts(), nil
	case OpGetPrompt:
		return r.getPrompt(ctx, req.Name, req.Arguments)
	case OpComplete:
		return r.complete(ctx, req.Name, req.Argument)
	default:
		return nil, fmt.Errorf("%w: unsupported operation %s", ErrValidation, req.Op)
	}
}

func (r *Router) listResources(ctx context.Context) (*Response, error) {
	names, err := r.catalog.ListTableNames(ctx)
	if err != nil {
		return nil, r.catalogFailure(OpListResources, err)
	}
	resources := make([]ResourceEntry, len(names))
	for i, name := range names {
		resources[i] = ResourceEntry{
			URI:      r.baseURL.ResourceURI(name),
			MIMEType: ResourceMIMEType,
			Name:     fmt.Sprintf("\"%s\" database schema", name),
		}
	}
	return &Response{Resources: resources}, nil
}

func (r *Router) readResource(ctx context.Context, uri string) (*Response, error) {
	table, err := ParseResourceURI(uri)
	if err != nil {
		return nil, err
	}
	columns, err := r.catalog.ListColumnTypes(ctx, table)
	if err != nil {
		return nil, r.catalogFailure(OpReadResource, err)
	}
	if columns == nil {
		columns = []ColumnType{}
	}
	text, err := json.MarshalIndent(columns, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal columns of %q: %w", table, err)
	}
	return &Response{Contents: []ResourceContent{{
		URI:      uri,
		MIMEType: ResourceMIMEType,
		Text:     string(text),
	}}}, nil
}

func (r *Router) listTools() (*Response, error) {
	schema, err := marshalInputSchema(schemaToolInputSchema())
	if err != nil {
		return nil, err
	}
	return &Response{Tools: []ToolDescriptor{{
		Name:        SchemaToolName,
		Description: "Returns the PostgreSQL schema as CREATE TABLE statements, for every table or for one table.",
		InputSchema: schema,
	}}}, nil
}

func (r *Router) callTool(ctx context.Context, name string, args map[string]string) (*Response, error) {
	if name != SchemaToolName {
		return nil, fmt.Errorf("%w: tool %q", ErrUnknownName, name)
	}
	target, err := toolTarget(args)
	if err != nil {
		return nil, err
	}
	text, err := r.renderSchema(ctx, OpCallTool, target)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text}, nil
}

// toolTarget validates the schema tool arguments.
func toolTarget(args map[string]string) (TableIdentifier, error) {
	switch mode := strings.TrimSpace(args[ArgMode]); mode {
	case ModeAll:
		return AllTables, nil
	case ModeSpecific:
		target, err := ParseTableIdentifier(args[ArgTableName])
		if err != nil {
			return "", fmt.Errorf("%w: %s is required when %s is %q", ErrValidation, ArgTableName, ArgMode, ModeSpecific)
		}
		return target, nil
	case "":
		return "", fmt.Errorf("%w: %s is required", ErrValidation, ArgMode)
	default:
		return "", fmt.Errorf("%w: %s must be %q or %q, got %q", ErrValidation, ArgMode, ModeAll, ModeSpecific, mode)
	}
}

func (r *Router) listPrompts() *Response {
	return &Response{Prompts: []PromptDescriptor{{
		Name:        SchemaToolName,
		Description: "Provides the PostgreSQL schema of one table, or of every table, as CREATE TABLE statements.",
		Arguments: []PromptArgument{{
			Name:        ArgTableName,
			Description: fmt.Sprintf("Table name, or %q for every table", AllTables),
			Required:    true,
		}},
	}}}
}

func (r *Router) getPrompt(ctx context.Context, name string, args map[string]string) (*Response, error) {
	if name != SchemaToolName {
		return nil, fmt.Errorf("%w: prompt %q", ErrUnknownName, name)
	}
	target, err := ParseTableIdentifier(args[ArgTableName])
	if err != nil {
		return nil, fmt.Errorf("%w: %s is required", ErrValidation, ArgTableName)
	}
	text, err := r.renderSchema(ctx, OpGetPrompt, target)
	if err != nil {
		return nil, err
	}
	description := fmt.Sprintf("Schema for table '%s'", target)
	if target.IsAll() {
		description = "Schema for all tables in the database"
	}
	return &Response{Description: description, Text: text}, nil
}

func (r *Router) complete(ctx context.Context, name string, arg CompletionArgument) (*Response, error) {
	if name != SchemaToolName {
		return nil, fmt.Errorf("%w: completion reference %q", ErrUnknownName, name)
	}
	empty := &Response{Completion: &Completion{Values: []string{}}}
	if arg.Name != "" && arg.Name != ArgTableName {
		return empty, nil
	}
	// Whitespace means the user has moved past the table name.
	if strings.ContainsFunc(arg.Value, unicode.IsSpace) {
		return empty, nil
	}

	names, err := r.catalog.ListTableNames(ctx)
	if err != nil {
		return nil, r.catalogFailure(OpComplete, err)
	}
	values := make([]string, 0, len(names)+1)
	values = append(values, string(AllTables))
	values = append(values, names...)

	completion := &Completion{Values: values, Total: len(values)}
	if len(values) > MaxCompletionValues {
		completion.Values = values[:MaxCompletionValues]
		completion.HasMore = true
	}
	return &Response{Completion: completion}, nil
}

func (r *Router) renderSchema(ctx context.Context, op Operation, target TableIdentifier) (string, error) {
	rows, err := r.catalog.FetchColumns(ctx, target)
	if err != nil {
		return "", r.catalogFailure(op, err)
	}
	return RenderDDL(rows, target), nil
}

// catalogError keeps the redacted, annotated message for callers while
// leaving the driver error reachable through errors.Unwrap.
type catalogError struct {
	msg string
	err error
}

func (e *catalogError) Error() string { return e.msg }

func (e *catalogError) Unwrap() error { return e.err }

func (e *catalogError) Is(target error) bool { return target == ErrCatalog }

func (r *Router) catalogFailure(op Operation, err error) error {
	msg := r.redactor.Redact(fmt.Sprintf("%s: %v: %v", op, ErrCatalog, err))
	return &catalogError{msg: r.hints.Annotate(msg), err: err}
}
