package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	pgschema "github.com/pazars/postgres-context-server"
)

func TestSetupLoggerLevels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		logger, closeLog, err := setupLogger(pgschema.LoggingConfig{Level: tt.level, Format: "json", Output: "stderr"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		closeLog()
		if logger.GetLevel() != tt.want {
			t.Fatalf("level %q: expected %v, got %v", tt.level, tt.want, logger.GetLevel())
		}
	}
}

func TestSetupLoggerFileOutput(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "server.log")
	logger, closeLog, err := setupLogger(pgschema.LoggingConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Str("op", "list-tools").Msg("request handled")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"op":"list-tools"`) || !strings.Contains(string(data), `"time":`) {
		t.Fatalf("unexpected log line: %s", data)
	}
}

func TestSetupLoggerUnwritableFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing-dir", "server.log")
	if _, _, err := setupLogger(pgschema.LoggingConfig{Level: "info", Format: "json", Output: path}); err == nil {
		t.Fatal("expected error for unwritable log path")
	}
}

func TestIsGracefulShutdown(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want bool
	}{
		{nil, true},
		{io.EOF, true},
		{context.Canceled, true},
		{fmt.Errorf("read stdin: %w", context.Canceled), true},
		{errors.New("broken pipe"), false},
	}
	for _, tt := range tests {
		if got := isGracefulShutdown(tt.err); got != tt.want {
			t.Fatalf("isGracefulShutdown(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

// Note: Tests using t.Setenv() cannot use t.Parallel() in Go.

func TestServeMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	envFile := filepath.Join(t.TempDir(), "absent.env")

	err := runServe(context.Background(), envFile, strings.NewReader(""), &bytes.Buffer{})
	if !errors.Is(err, pgschema.ErrMissingDatabaseURL) {
		t.Fatalf("expected ErrMissingDatabaseURL, got %v", err)
	}
}

func TestServeRejectsStdoutLogging(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/app")
	t.Setenv("PGSCHEMA_LOG_OUTPUT", "stdout")

	err := runServe(context.Background(), "", strings.NewReader(""), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "stdout") {
		t.Fatalf("expected stdout rejection, got %v", err)
	}
}

func TestServeUnreachableDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://someone:pw@127.0.0.1:1/app?connect_timeout=2")
	t.Setenv("PGSCHEMA_LOG_OUTPUT", filepath.Join(t.TempDir(), "server.log"))

	var stdout bytes.Buffer
	err := runServe(context.Background(), "", strings.NewReader(""), &stdout)
	if err == nil || !strings.Contains(err.Error(), "database connection test failed") {
		t.Fatalf("expected connection failure, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("nothing may be written to stdout before serving, got %q", stdout.String())
	}
}

func TestSchemaRequest(t *testing.T) {
	t.Parallel()
	tests := []struct {
		args []string
		want map[string]string
	}{
		{nil, map[string]string{"mode": "all"}},
		{[]string{"all-tables"}, map[string]string{"mode": "all"}},
		{[]string{"orders"}, map[string]string{"mode": "specific", "tableName": "orders"}},
	}
	for _, tt := range tests {
		req := schemaRequest(tt.args)
		if req.Op != pgschema.OpCallTool || req.Name != pgschema.SchemaToolName {
			t.Fatalf("unexpected request %+v", req)
		}
		if diff := cmp.Diff(tt.want, req.Arguments); diff != "" {
			t.Fatalf("args %v (-want +got):\n%s", tt.args, diff)
		}
	}
}

func TestPrintResources(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printResources(&buf, []pgschema.ResourceEntry{
		{URI: "postgres://localhost:5432/orders/schema", MIMEType: "application/json", Name: `"orders" database schema`},
	})
	output := buf.String()
	for _, want := range []string{"Resource", "URI", "postgres://localhost:5432/orders/schema", `"orders" database schema`} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in table output:\n%s", want, output)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()
	rootCmd := newRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "postgres-context-server version dev\n" {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestRootRejectsArguments(t *testing.T) {
	t.Parallel()
	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"unexpected"})
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
