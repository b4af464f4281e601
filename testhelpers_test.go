//go:build integration

package pgschema_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rickchristie/govner/pgflock/client"
	"github.com/rs/zerolog"

	pgschema "github.com/pazars/postgres-context-server"
)

const (
	pgflockLockerPort = 9776
	pgflockPassword   = "pgflock"
)

func acquireTestDB(t *testing.T) string {
	t.Helper()
	connStr, err := client.Lock(pgflockLockerPort, t.Name(), pgflockPassword)
	if err != nil {
		t.Fatalf("Failed to acquire test database: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Unlock(pgflockLockerPort, pgflockPassword, connStr)
	})
	return connStr
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func defaultConfig(connStr string) pgschema.Config {
	config, err := pgschema.LoadConfigFromMap(map[string]string{pgschema.DatabaseURLEnv: connStr})
	if err != nil {
		panic(err)
	}
	return *config
}

// setupSchema runs DDL on a plain connection; the catalog itself only ever
// opens read-only sessions.
func setupSchema(t *testing.T, connStr string, statements ...string) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("setup connect failed: %v", err)
	}
	defer conn.Close(ctx)
	for _, sql := range statements {
		if _, err := conn.Exec(ctx, sql); err != nil {
			t.Fatalf("setup failed for %q: %v", sql, err)
		}
	}
}

// newTestCatalog acquires a database, applies statements and opens a
// PoolCatalog over it.
func newTestCatalog(t *testing.T, statements ...string) (*pgschema.PoolCatalog, string) {
	t.Helper()
	connStr := acquireTestDB(t)
	setupSchema(t, connStr, statements...)
	ctx := context.Background()
	catalog, err := pgschema.NewPoolCatalog(ctx, defaultConfig(connStr), testLogger())
	if err != nil {
		t.Fatalf("Failed to create PoolCatalog: %v", err)
	}
	t.Cleanup(catalog.Close)
	return catalog, connStr
}
