// Package store implements the control plane's metadata repositories on
// Postgres via pgx: the database registry, API keys, and the mutation audit
// log.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/litecove/litecove/internal/core/domain"
	"github.com/litecove/litecove/internal/core/port"
)

// DatabaseRepositoryAdapter implements port.DatabaseRepository on pgx.
type DatabaseRepositoryAdapter struct {
	pool *pgxpool.Pool
}

// NewDatabaseRepository creates a new DatabaseRepositoryAdapter.
func NewDatabaseRepository(pool *pgxpool.Pool) *DatabaseRepositoryAdapter {
	return &DatabaseRepositoryAdapter{pool: pool}
}

func (a *DatabaseRepositoryAdapter) CreateDatabase(ctx context.Context, name string) (*port.DatabaseRecord, error) {
	row := a.pool.QueryRow(ctx,
		`INSERT INTO databases (name, status)
		 VALUES ($1, 'disconnected')
		 RETURNING id, name, status, created_at`,
		name,
	)
	return scanDatabase(row)
}

func (a *DatabaseRepositoryAdapter) GetDatabaseByID(ctx context.Context, id uuid.UUID) (*port.DatabaseRecord, error) {
	pgID, err := toPgUUID(id)
	if err != nil {
		return nil, fmt.Errorf("invalid database id: %w", err)
	}

	row := a.pool.QueryRow(ctx,
		`SELECT id, name, status, created_at FROM databases WHERE id = $1`,
		pgID,
	)
	rec, err := scanDatabase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundf("database %s", id)
	}
	return rec, err
}

func (a *DatabaseRepositoryAdapter) ListDatabases(ctx context.Context) ([]port.DatabaseRecord, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, name, status, created_at FROM databases ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	defer rows.Close()

	var result []port.DatabaseRecord
	for rows.Next() {
		rec, err := scanDatabase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (a *DatabaseRepositoryAdapter) UpdateDatabaseStatus(ctx context.Context, id uuid.UUID, status string) error {
	pgID, err := toPgUUID(id)
	if err != nil {
		return fmt.Errorf("invalid database id: %w", err)
	}

	tag, err := a.pool.Exec(ctx,
		`UPDATE databases SET status = $1 WHERE id = $2`,
		status, pgID,
	)
	if err != nil {
		return fmt.Errorf("updating database status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("database %s", id)
	}
	return nil
}

func (a *DatabaseRepositoryAdapter) DeleteDatabase(ctx context.Context, id uuid.UUID) error {
	pgID, err := toPgUUID(id)
	if err != nil {
		return fmt.Errorf("invalid database id: %w", err)
	}

	tag, err := a.pool.Exec(ctx, `DELETE FROM databases WHERE id = $1`, pgID)
	if err != nil {
		return fmt.Errorf("deleting database: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("database %s", id)
	}
	return nil
}

func scanDatabase(row pgx.Row) (*port.DatabaseRecord, error) {
	var (
		id        pgtype.UUID
		name      string
		status    string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &name, &status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning database row: %w", err)
	}
	return &port.DatabaseRecord{
		ID:        fromPgUUID(id),
		Name:      name,
		Status:    status,
		CreatedAt: createdAt.Time,
	}, nil
}

// toPgUUID converts a uuid.UUID to pgtype.UUID.
func toPgUUID(id uuid.UUID) (pgtype.UUID, error) {
	var pg pgtype.UUID
	if err := pg.Scan(id.String()); err != nil {
		return pg, err
	}
	return pg, nil
}

// fromPgUUID converts a pgtype.UUID to uuid.UUID, returning uuid.Nil on failure.
func fromPgUUID(pg pgtype.UUID) uuid.UUID {
	if !pg.Valid {
		return uuid.Nil
	}
	id, err := uuid.FromBytes(pg.Bytes[:])
	if err != nil {
		return uuid.Nil
	}
	return id
}
