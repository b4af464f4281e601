package pgschema

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pazars/postgres-context-server/internal/timeout"
)

// Catalog reads schema metadata. Implementations must be safe for
// concurrent use.
type Catalog interface {
	// FetchColumns returns column metadata for target. AllTables covers every
	// non-system schema, ordered by table name then ordinal position. A
	// specific table is ordered by ordinal position; an unknown table yields
	// an empty slice.
	FetchColumns(ctx context.Context, target TableIdentifier) ([]ColumnDescriptor, error)
	// ListTableNames returns the tables of the public schema, sorted.
	ListTableNames(ctx context.Context) ([]string, error)
	// ListColumnTypes returns name and type of each column of table.
	ListColumnTypes(ctx context.Context, table string) ([]ColumnType, error)
}

// Query kinds, used to resolve per-query timeouts.
const (
	KindColumns     = "columns"
	KindTableNames  = "table_names"
	KindColumnTypes = "column_types"
)

const allColumnsSQL = `
SELECT
    table_name,
    column_name,
    data_type,
    is_nullable = 'YES' AS is_nullable,
    column_default
FROM information_schema.columns
WHERE table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
ORDER BY table_name, ordinal_position;
`

const tableColumnsSQL = `
SELECT
    table_name,
    column_name,
    data_type,
    is_nullable = 'YES' AS is_nullable,
    column_default
FROM information_schema.columns
WHERE table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
  AND table_name = $1
ORDER BY ordinal_position;
`

const tableNamesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public'
ORDER BY table_name;
`

const columnTypesSQL = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
  AND table_name = $1
ORDER BY ordinal_position;
`

// PoolCatalog is the pgxpool-backed Catalog. All exported methods are safe
// for concurrent use from multiple goroutines.
type PoolCatalog struct {
	pool       *pgxpool.Pool
	semaphore  chan struct{}
	timeoutMgr *timeout.Manager
	logger     zerolog.Logger
}

var _ Catalog = (*PoolCatalog)(nil)

// NewPoolCatalog creates the connection pool described by config. The pool
// connects lazily; use Ping to verify connectivity.
// Panics on invalid pool config. Returns error only for runtime failures
// (e.g., an unparsable connection string).
func NewPoolCatalog(ctx context.Context, config Config, logger zerolog.Logger) (*PoolCatalog, error) {
	if config.DatabaseURL == "" {
		panic("pgschema: DatabaseURL must be non-empty")
	}
	if config.Pool.MaxConns <= 0 {
		panic("pgschema: pool max conns must be > 0")
	}

	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(config.Pool.MaxConns)
	poolConfig.MinConns = int32(config.Pool.MinConns)
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	if config.Pool.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.Pool.MaxConnLifetime
	}
	if config.Pool.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.Pool.MaxConnIdleTime
	}
	if config.Pool.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = config.Pool.HealthCheckPeriod
	}

	// Every session is read-only; this server never writes.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "SET default_transaction_read_only = on"); err != nil {
			return fmt.Errorf("failed to SET default_transaction_read_only: %w", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &PoolCatalog{
		pool:      pool,
		semaphore: make(chan struct{}, config.Pool.MaxConns),
		timeoutMgr: timeout.NewManager(timeout.Config{
			DefaultTimeout: config.Query.Timeout,
			PerKind:        map[string]time.Duration{KindTableNames: config.Query.CompletionTimeout},
		}),
		logger: logger,
	}, nil
}

// Password returns the password the pool authenticates with, so callers can
// keep it out of error messages.
func (c *PoolCatalog) Password() string {
	return c.pool.Config().ConnConfig.Password
}

// Ping checks that a connection can be acquired and used.
func (c *PoolCatalog) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the connection pool.
func (c *PoolCatalog) Close() {
	c.pool.Close()
}

// FetchColumns implements Catalog.
func (c *PoolCatalog) FetchColumns(ctx context.Context, target TableIdentifier) ([]ColumnDescriptor, error) {
	if target.IsAll() {
		return collect(ctx, c, KindColumns, allColumnsSQL, nil, pgx.RowToStructByName[ColumnDescriptor])
	}
	return collect(ctx, c, KindColumns, tableColumnsSQL, []any{string(target)}, pgx.RowToStructByName[ColumnDescriptor])
}

// ListTableNames implements Catalog.
func (c *PoolCatalog) ListTableNames(ctx context.Context) ([]string, error) {
	return collect(ctx, c, KindTableNames, tableNamesSQL, nil, pgx.RowTo[string])
}

// ListColumnTypes implements Catalog.
func (c *PoolCatalog) ListColumnTypes(ctx context.Context, table string) ([]ColumnType, error) {
	return collect(ctx, c, KindColumnTypes, columnTypesSQL, []any{table}, pgx.RowToStructByName[ColumnType])
}

// collect runs one catalog query on one pooled connection. The connection
// slot and the connection itself are released on every return path.
func collect[T any](ctx context.Context, c *PoolCatalog, kind, sql string, args []any, scan pgx.RowToFunc[T]) ([]T, error) {
	startTime := time.Now()

	// 1. Acquire semaphore
	select {
	case c.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: failed to acquire query slot: all %d connection slots are in use, context cancelled while waiting: %w", kind, cap(c.semaphore), ctx.Err())
	}
	defer func() { <-c.semaphore }()

	// 2. Apply configured timeout
	queryCtx, cancel := c.timeoutMgr.WithTimeout(ctx, kind)
	defer cancel()

	// 3. Acquire connection and execute
	conn, err := c.pool.Acquire(queryCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to acquire connection: %w", kind, err)
	}
	defer conn.Release()

	rows, err := conn.Query(queryCtx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", kind, err)
	}
	result, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("%s scan failed: %w", kind, err)
	}
	if result == nil {
		result = []T{}
	}

	c.logger.Info().
		Str("kind", kind).
		Dur("duration", time.Since(startTime)).
		Int("row_count", len(result)).
		Msg("catalog query executed")

	return result, nil
}
