package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	pgschema "github.com/pazars/postgres-context-server"
)

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP on stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *envFile, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runServe(ctx context.Context, envFile string, stdin io.Reader, stdout io.Writer) error {
	// 1. Load config, open the pool
	s, closeSession, err := loadSession(ctx, envFile)
	if err != nil {
		return err
	}
	defer closeSession()
	logger := s.logger

	// 2. Test database connection
	logger.Info().Msg("testing database connection")
	if err := s.catalog.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Msg("database connection test successful")

	// 3. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})
	mcpServer, err := pgschema.NewMCPServer(s.router, serverName, version, hooks, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// 4. Serve stdio until EOF or a signal
	stdio := server.NewStdioServer(mcpServer)
	stdio.SetErrorLogger(log.New(logger.With().Str("component", "stdio").Logger(), "", 0))

	logger.Info().Str("base_url", s.router.BaseURL().String()).Msg("starting postgres-context-server on stdio")
	err = stdio.Listen(ctx, stdin, stdout)
	if isGracefulShutdown(err) {
		logger.Info().Msg("server stopped")
		return nil
	}
	return fmt.Errorf("stdio server failed: %w", err)
}

// isGracefulShutdown reports whether err ends serving normally: the client
// closed stdin or the process was told to stop.
func isGracefulShutdown(err error) bool {
	return err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}

// setupLogger builds the logger for config. The returned func closes the
// log file, if one was opened.
func setupLogger(config pgschema.LoggingConfig) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	closeFn := func() {}
	if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file %s: %w", config.Output, err)
		}
		output = f
		closeFn = func() { _ = f.Close() }
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), closeFn, nil
}
