package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/retry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// pingTimeout bounds a single connection check
const pingTimeout = 5 * time.Second

// DB is the connection pool behind the postgres content store
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// New opens the pool and waits for the server to answer a ping. Failed pings
// are retried under policy so the service can start alongside its database.
func New(ctx context.Context, cfg *config.DatabaseConfig, policy retry.Policy, log zerolog.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.MaxLifetime)

	log = log.With().Str("component", "database").Str("host", cfg.Host).Str("database", cfg.Name).Logger()

	retrier := retry.New(policy, func(error) bool { return true }, log)
	err = retrier.Do(ctx, "ping", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return pool.PingContext(pingCtx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	log.Info().Int("max_open_conns", cfg.MaxOpenConns).Msg("Connected to postgres")
	return &DB{DB: pool, log: log}, nil
}

// RunMigrations brings the schema up to the newest migration in dir
func (db *DB) RunMigrations(dir string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("load migrations from %s: %w", dir, err)
	}

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		db.log.Info().Uint("version", before).Msg("Schema up to date")
		return nil
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	db.log.Info().Uint("from", before).Uint("to", after).Bool("dirty", dirty).Msg("Schema migrated")
	return nil
}
