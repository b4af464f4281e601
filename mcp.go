package pgschema

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// NewMCPServer creates an MCP server exposing the router's schema tool,
// prompt, resources and completions. hooks may be nil; the server adds its
// own request hook to it.
func NewMCPServer(router *Router, name, version string, hooks *server.Hooks, logger zerolog.Logger) (*server.MCPServer, error) {
	b := &mcpBinding{
		router:     router,
		logger:     logger,
		registered: make(map[string]struct{}),
	}
	if hooks == nil {
		hooks = &server.Hooks{}
	}
	hooks.AddOnRequestInitialization(b.beforeRequest)

	b.server = server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithCompletions(),
		server.WithPromptCompletionProvider(b),
		server.WithHooks(hooks),
	)

	if err := b.registerTools(); err != nil {
		return nil, err
	}
	if err := b.registerPrompts(); err != nil {
		return nil, err
	}
	b.registerResourceTemplate()
	return b.server, nil
}

// mcpBinding adapts mcp-go handlers onto Router.Dispatch.
type mcpBinding struct {
	router *Router
	server *server.MCPServer
	logger zerolog.Logger

	mu         sync.Mutex
	registered map[string]struct{} // resource URIs currently registered
}

func (b *mcpBinding) registerTools() error {
	resp, err := b.router.Dispatch(context.Background(), Request{Op: OpListTools})
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	for _, desc := range resp.Tools {
		tool := mcp.NewToolWithRawSchema(desc.Name, desc.Description, desc.InputSchema)
		tool.Annotations.ReadOnlyHint = mcp.ToBoolPtr(true)
		b.server.AddTool(tool, b.loggedToolHandler(desc.Name, b.callTool))
	}
	return nil
}

func (b *mcpBinding) callTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := b.router.Dispatch(ctx, Request{
		Op:        OpCallTool,
		Name:      req.Params.Name,
		Arguments: stringArguments(req.GetArguments()),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(resp.Text), nil
}

func (b *mcpBinding) registerPrompts() error {
	resp, err := b.router.Dispatch(context.Background(), Request{Op: OpListPrompts})
	if err != nil {
		return fmt.Errorf("failed to list prompts: %w", err)
	}
	for _, desc := range resp.Prompts {
		opts := []mcp.PromptOption{mcp.WithPromptDescription(desc.Description)}
		for _, arg := range desc.Arguments {
			argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
			if arg.Required {
				argOpts = append(argOpts, mcp.RequiredArgument())
			}
			opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
		}
		b.server.AddPrompt(mcp.NewPrompt(desc.Name, opts...), b.getPrompt)
	}
	return nil
}

func (b *mcpBinding) getPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	resp, err := b.router.Dispatch(ctx, Request{
		Op:        OpGetPrompt,
		Name:      req.Params.Name,
		Arguments: req.Params.Arguments,
	})
	if err != nil {
		return nil, err
	}
	return mcp.NewGetPromptResult(resp.Description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(resp.Text)),
	}), nil
}

// registerResourceTemplate routes reads of any table's schema URI, listed
// or not, to the router.
func (b *mcpBinding) registerResourceTemplate() {
	template := mcp.NewResourceTemplate(
		b.router.BaseURL().String()+"/{"+ArgTableName+"}/"+schemaSegment,
		"Table schema",
		mcp.WithTemplateDescription("Column names and data types of one table"),
		mcp.WithTemplateMIMEType(ResourceMIMEType),
	)
	b.server.AddResourceTemplate(template, b.readResource)
}

func (b *mcpBinding) readResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	resp, err := b.router.Dispatch(ctx, Request{Op: OpReadResource, URI: req.Params.URI})
	if err != nil {
		return nil, err
	}
	contents := make([]mcp.ResourceContents, len(resp.Contents))
	for i, c := range resp.Contents {
		contents[i] = mcp.TextResourceContents{URI: c.URI, MIMEType: c.MIMEType, Text: c.Text}
	}
	return contents, nil
}

// beforeRequest refreshes the registered resources ahead of every
// resources/list so the listing reflects the catalog at request time. A
// catalog failure fails the listing request.
func (b *mcpBinding) beforeRequest(ctx context.Context, id any, message any) error {
	if requestMethod(message) != string(mcp.MethodResourcesList) {
		return nil
	}
	return b.syncResources(ctx)
}

func (b *mcpBinding) syncResources(ctx context.Context) error {
	resp, err := b.router.Dispatch(ctx, Request{Op: OpListResources})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current := make(map[string]struct{}, len(resp.Resources))
	for _, entry := range resp.Resources {
		current[entry.URI] = struct{}{}
		if _, ok := b.registered[entry.URI]; ok {
			continue
		}
		b.server.AddResource(mcp.NewResource(entry.URI, entry.Name, mcp.WithMIMEType(entry.MIMEType)), b.readResource)
	}
	for uri := range b.registered {
		if _, ok := current[uri]; !ok {
			b.server.RemoveResource(uri)
		}
	}
	b.registered = current

	b.logger.Debug().Int("resource_count", len(current)).Msg("resources synced")
	return nil
}

// CompletePromptArgument implements server.PromptCompletionProvider.
func (b *mcpBinding) CompletePromptArgument(ctx context.Context, promptName string, argument mcp.CompleteArgument, _ mcp.CompleteContext) (*mcp.Completion, error) {
	resp, err := b.router.Dispatch(ctx, Request{
		Op:       OpComplete,
		Name:     promptName,
		Argument: CompletionArgument{Name: argument.Name, Value: argument.Value},
	})
	if err != nil {
		return nil, err
	}
	return &mcp.Completion{
		Values:  resp.Completion.Values,
		Total:   resp.Completion.Total,
		HasMore: resp.Completion.HasMore,
	}, nil
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (b *mcpBinding) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		b.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Bool("is_error", result != nil && result.IsError).
			Msg("tool call")
		return result, err
	}
}

// requestMethod extracts the JSON-RPC method of a raw inbound message.
func requestMethod(message any) string {
	var raw []byte
	switch m := message.(type) {
	case json.RawMessage:
		raw = m
	case []byte:
		raw = m
	default:
		return ""
	}
	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Method
}

// stringArguments keeps the string-valued tool arguments.
func stringArguments(args map[string]any) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
