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

// APIKeyRepositoryAdapter implements port.APIKeyRepository on pgx.
type APIKeyRepositoryAdapter struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository creates a new APIKeyRepositoryAdapter.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepositoryAdapter {
	return &APIKeyRepositoryAdapter{pool: pool}
}

func (a *APIKeyRepositoryAdapter) CreateAPIKey(ctx context.Context, name, keyHash, displayPrefix string, databaseID *uuid.UUID) (*port.APIKeyRecord, error) {
	var dbID pgtype.UUID
	if databaseID != nil {
		var err error
		dbID, err = toPgUUID(*databaseID)
		if err != nil {
			return nil, fmt.Errorf("invalid database id: %w", err)
		}
	}

	row := a.pool.QueryRow(ctx,
		`INSERT INTO api_keys (name, key_hash, display_prefix, database_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, key_hash, display_prefix, database_id, revoked, created_at, last_used_at`,
		name, keyHash, displayPrefix, dbID,
	)
	return scanAPIKey(row)
}

func (a *APIKeyRepositoryAdapter) GetAPIKeyByHash(ctx context.Context, keyHash string) (*port.APIKeyRecord, error) {
	row := a.pool.QueryRow(ctx,
		`SELECT id, name, key_hash, display_prefix, database_id, revoked, created_at, last_used_at
		 FROM api_keys WHERE key_hash = $1`,
		keyHash,
	)
	rec, err := scanAPIKey(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundf("api key")
	}
	return rec, err
}

func (a *APIKeyRepositoryAdapter) ListAPIKeys(ctx context.Context) ([]port.APIKeyRecord, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, name, key_hash, display_prefix, database_id, revoked, created_at, last_used_at
		 FROM api_keys ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var result []port.APIKeyRecord
	for rows.Next() {
		rec, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (a *APIKeyRepositoryAdapter) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	pgID, err := toPgUUID(id)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	tag, err := a.pool.Exec(ctx,
		`UPDATE api_keys SET revoked = TRUE WHERE id = $1`,
		pgID,
	)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("api key %s", id)
	}
	return nil
}

func (a *APIKeyRepositoryAdapter) TouchAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	pgID, err := toPgUUID(id)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	_, err = a.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`,
		pgID,
	)
	if err != nil {
		return fmt.Errorf("touching api key: %w", err)
	}
	return nil
}

func scanAPIKey(row pgx.Row) (*port.APIKeyRecord, error) {
	var (
		id         pgtype.UUID
		name       string
		keyHash    string
		prefix     string
		dbID       pgtype.UUID
		revoked    bool
		createdAt  pgtype.Timestamptz
		lastUsedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &name, &keyHash, &prefix, &dbID, &revoked, &createdAt, &lastUsedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning api key row: %w", err)
	}

	rec := &port.APIKeyRecord{
		ID:            fromPgUUID(id),
		Name:          name,
		KeyHash:       keyHash,
		DisplayPrefix: prefix,
		Revoked:       revoked,
		CreatedAt:     createdAt.Time,
	}
	if dbID.Valid {
		d := fromPgUUID(dbID)
		rec.DatabaseID = &d
	}
	if lastUsedAt.Valid {
		t := lastUsedAt.Time
		rec.LastUsedAt = &t
	}
	return rec, nil
}
