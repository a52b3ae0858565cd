package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scholarag/scholarag/pkg/config"

	// Database drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQL-backed knowledge base and conversation store. Postgres
// is the production backend; sqlite backs the conversation tables in tests.
// Hybrid search requires pgvector and is postgres-only.
type Store struct {
	db           *sql.DB
	dialect      string // "postgres" or "sqlite"
	embeddingDim int
}

// New wraps an existing connection. The embedding dimension sizes the
// vector column when the schema is initialized.
func New(db *sql.DB, dialect string, embeddingDim int) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, sqlite)", dialect)
	}

	return &Store{
		db:           db,
		dialect:      dialect,
		embeddingDim: embeddingDim,
	}, nil
}

// NewFromConfig opens a connection and initializes the schema.
func NewFromConfig(cfg *config.DatabaseConfig, embeddingDim int) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	db, err := sql.Open(cfg.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := New(db, cfg.Dialect(), embeddingDim)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns "postgres" or "sqlite".
func (s *Store) Dialect() string {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}
