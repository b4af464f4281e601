package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pazars/postgres-context-server/internal/redact"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Startup errors can echo the connection string.
		fmt.Fprintf(os.Stderr, "Error: %v\n", redact.ForSecrets().Redact(err.Error()))
		return 1
	}
	return 0
}
