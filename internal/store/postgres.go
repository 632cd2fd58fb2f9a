package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres is the durable Store backend.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close closes the database connection
func (s *Postgres) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Postgres) GetDB() *sqlx.DB {
	return s.db
}

// translateErr maps retryable Postgres failures onto ErrSerialization so
// the coordinator can retry them transparently.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		// serialization_failure, deadlock_detected
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
	}
	return err
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Postgres) inTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return translateErr(err)
	}
	return translateErr(tx.Commit())
}
