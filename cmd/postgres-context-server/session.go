package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	pgschema "github.com/pazars/postgres-context-server"
)

// session is the catalog and router one command runs against.
type session struct {
	config  *pgschema.Config
	logger  zerolog.Logger
	catalog *pgschema.PoolCatalog
	router  *pgschema.Router
}

func openSession(ctx context.Context, config *pgschema.Config, logger zerolog.Logger) (*session, error) {
	base, err := pgschema.NewBaseURL(config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	catalog, err := pgschema.NewPoolCatalog(ctx, *config, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		config:  config,
		logger:  logger,
		catalog: catalog,
		router:  pgschema.NewRouter(catalog, base, logger, pgschema.WithSecrets(catalog.Password())),
	}, nil
}

// loadSession loads configuration from envFile and the environment, then
// opens a session logging per the loaded config.
func loadSession(ctx context.Context, envFile string) (*session, func(), error) {
	config, err := pgschema.LoadConfig(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, closeLog, err := setupLogger(config.Logging)
	if err != nil {
		return nil, nil, err
	}
	s, err := openSession(ctx, config, logger)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return s, func() {
		s.catalog.Close()
		closeLog()
	}, nil
}
