package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-discount/internal/obs"
)

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

const (
	selectConfigurationSQL = `SELECT value::text FROM discount_configurations WHERE id = $1`
	upsertConfigurationSQL = `INSERT INTO discount_configurations (id, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteConfigurationSQL = `DELETE FROM discount_configurations WHERE id = $1`
)

// PostgresStore keeps configurations in the discount_configurations table.
type PostgresStore struct {
	DB DB
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// Get returns the stored document or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (value string, err error) {
	defer func() { obs.ObserveStoreOp("get", ignoreNotFound(err)) }()
	id, err = normaliseID(id)
	if err != nil {
		return "", err
	}
	err = s.DB.QueryRow(ctx, selectConfigurationSQL, id).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Put upserts value.
func (s *PostgresStore) Put(ctx context.Context, id, value string) (err error) {
	defer func() { obs.ObserveStoreOp("put", err) }()
	id, err = normaliseID(id)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, upsertConfigurationSQL, id, value)
	return err
}

// Delete removes the row. Deleting a missing id reports ErrNotFound.
func (s *PostgresStore) Delete(ctx context.Context, id string) (err error) {
	defer func() { obs.ObserveStoreOp("delete", ignoreNotFound(err)) }()
	id, err = normaliseID(id)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, deleteConfigurationSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}
