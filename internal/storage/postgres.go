// internal/storage/postgres.go
// PostgreSQL implementation of the Store interface, for sessions whose
// local state must survive a process restart.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgres keeps every key in one JSONB table.
type postgres struct {
	db *pgxpool.Pool // Connection pool to PostgreSQL database
}

// NewPostgres creates a new PostgreSQL storage implementation.
// It establishes a connection pool to the database and initializes the schema.
// Parameters:
//   - dsn: Database connection string in PostgreSQL format
//
// Returns:
//   - Store: Implementation of the storage interface
//   - error: Any error that occurred during initialization
func NewPostgres(dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	// A session store sees little traffic
	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &postgres{db: pool}, nil
}

// initSchema creates the local_storage table if it does not exist.
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		CREATE TABLE IF NOT EXISTS local_storage (
		    key TEXT PRIMARY KEY,
		    value JSONB NOT NULL,
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
	`
	_, err := db.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool
func (p *postgres) Close() error {
	p.db.Close()
	return nil
}

// GetItem retrieves the document stored under key
func (p *postgres) GetItem(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(ctx, `SELECT value FROM local_storage WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return value, nil
}

// SetItem replaces the document stored under key
func (p *postgres) SetItem(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return ErrInvalidValue
	}
	query := `
		INSERT INTO local_storage (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := p.db.Exec(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set item: %w", err)
	}
	return nil
}

// RemoveItem deletes key; removing a missing key is not an error
func (p *postgres) RemoveItem(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM local_storage WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return nil
}

// Keys lists every stored key in ascending order
func (p *postgres) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, `SELECT key FROM local_storage ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	return keys, nil
}
