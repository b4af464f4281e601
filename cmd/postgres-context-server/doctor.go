package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	pgschema "github.com/pazars/postgres-context-server"
	"github.com/pazars/postgres-context-server/internal/redact"
)

// doctorPingTimeout bounds the connectivity check.
const doctorPingTimeout = 5 * time.Second

func newDoctorCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and connectivity, print client setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loadConfig := func() (*pgschema.Config, error) { return pgschema.LoadConfig(*envFile) }
			return doctor(cmd.Context(), cmd.ErrOrStderr(), isTTY(os.Stderr.Fd()), loadConfig)
		},
	}
}

func doctor(ctx context.Context, w io.Writer, useColor bool, loadConfig func() (*pgschema.Config, error)) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "%s %s\n\n", serverName, version)

	base, ok := doctorChecks(ctx, w, useColor, loadConfig)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Fix the issues above and run '%s doctor' again.\n", serverName)
		return nil
	}

	fmt.Fprintln(w)
	printClientSnippets(w, useColor, base)
	return nil
}

// doctorChecks runs each check in order, stopping at the first failure.
// Returns the base URL and true if all checks passed.
func doctorChecks(ctx context.Context, w io.Writer, useColor bool, loadConfig func() (*pgschema.Config, error)) (pgschema.BaseURL, bool) {
	// Check 1: configuration loads and validates
	config, err := loadConfig()
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Configuration loads: %v", err))
		return pgschema.BaseURL{}, false
	}
	printCheck(w, useColor, true, "Configuration loads")

	// Check 2: connection string parses
	base, err := pgschema.NewBaseURL(config.DatabaseURL)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("%s parses: %v", pgschema.DatabaseURLEnv, err))
		return pgschema.BaseURL{}, false
	}
	printCheck(w, useColor, true, fmt.Sprintf("%s parses (%s)", pgschema.DatabaseURLEnv, base))

	// Check 3: database reachable
	s, err := openSession(ctx, config, zerolog.Nop())
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Connection pool opens: %v", err))
		return pgschema.BaseURL{}, false
	}
	defer s.catalog.Close()

	pingCtx, cancel := context.WithTimeout(ctx, doctorPingTimeout)
	defer cancel()
	if err := s.catalog.Ping(pingCtx); err != nil {
		printCheck(w, useColor, false, "Database reachable: "+redact.ForSecrets(s.catalog.Password()).Redact(err.Error()))
		return pgschema.BaseURL{}, false
	}
	printCheck(w, useColor, true, "Database reachable")

	// Check 4: tables visible through the router
	resp, err := s.router.Dispatch(ctx, pgschema.Request{Op: pgschema.OpListResources})
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Tables listed: %v", err))
		return pgschema.BaseURL{}, false
	}
	printCheck(w, useColor, true, fmt.Sprintf("Tables listed (%d in schema public)", len(resp.Resources)))

	return base, true
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	mark, c := "✗", color.New(color.FgRed)
	if pass {
		mark, c = "✓", color.New(color.FgGreen)
	}
	fmt.Fprintf(w, "  %s %s\n", colorize(useColor, c).Sprint(mark), msg)
}

// printClientSnippets prints stdio client configuration for common MCP
// clients. The snippets never contain the real password.
func printClientSnippets(w io.Writer, useColor bool, base pgschema.BaseURL) {
	command := serverName
	if exe, err := os.Executable(); err == nil {
		command = exe
	}
	databaseURL := "postgres://USER:PASSWORD@" + strings.TrimPrefix(base.String(), "postgres://") + "/DBNAME"

	heading := colorize(useColor, color.New(color.Bold, color.FgCyan))
	subheading := colorize(useColor, color.New(color.Bold))

	heading.Fprintln(w, "Client Configuration")
	fmt.Fprintln(w)

	subheading.Fprintln(w, "  Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add postgres-schema -e DATABASE_URL=%s -- %s\n\n", databaseURL, command)

	subheading.Fprintln(w, "  JSON (Claude Desktop, Cursor, Windsurf, .mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "postgres-schema": {
        "command": %q,
        "env": {
          "DATABASE_URL": %q
        }
      }
    }
  }
`, command, databaseURL)
}
