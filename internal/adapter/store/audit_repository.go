package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/litecove/litecove/internal/core/port"
)

// AuditRepositoryAdapter implements port.MutationLogRepository on pgx.
type AuditRepositoryAdapter struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepositoryAdapter.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepositoryAdapter {
	return &AuditRepositoryAdapter{pool: pool}
}

// InsertBatch writes a batch of mutation entries in one round trip.
func (a *AuditRepositoryAdapter) InsertBatch(ctx context.Context, entries []port.MutationEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		dbID, err := toPgUUID(entry.DatabaseID)
		if err != nil {
			return fmt.Errorf("invalid database id: %w", err)
		}
		batch.Queue(
			`INSERT INTO mutation_log (database_id, table_name, operation, detail, duration_ms, is_error)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			dbID, entry.TableName, entry.Operation, entry.Detail, int32(entry.DurationMs), entry.IsError,
		)
	}

	results := a.pool.SendBatch(ctx, batch)
	defer results.Close() //nolint:errcheck

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting mutation log: %w", err)
		}
	}
	return nil
}

// ListMutationLogs returns the most recent mutation entries, optionally
// filtered by database.
func (a *AuditRepositoryAdapter) ListMutationLogs(ctx context.Context, databaseID *uuid.UUID, limit int) ([]port.MutationLogRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if databaseID != nil {
		dbID, convErr := toPgUUID(*databaseID)
		if convErr != nil {
			return nil, fmt.Errorf("invalid database id: %w", convErr)
		}
		rows, err = a.pool.Query(ctx,
			`SELECT id, database_id, table_name, operation, detail, duration_ms, is_error, created_at
			 FROM mutation_log WHERE database_id = $1
			 ORDER BY created_at DESC LIMIT $2`,
			dbID, int32(limit),
		)
	} else {
		rows, err = a.pool.Query(ctx,
			`SELECT id, database_id, table_name, operation, detail, duration_ms, is_error, created_at
			 FROM mutation_log ORDER BY created_at DESC LIMIT $1`,
			int32(limit),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing mutation logs: %w", err)
	}
	defer rows.Close()

	var result []port.MutationLogRecord
	for rows.Next() {
		var (
			id         pgtype.UUID
			dbID       pgtype.UUID
			tableName  string
			operation  string
			detail     pgtype.Text
			durationMs int32
			isError    bool
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &dbID, &tableName, &operation, &detail, &durationMs, &isError, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning mutation log row: %w", err)
		}
		result = append(result, port.MutationLogRecord{
			ID:         fromPgUUID(id),
			DatabaseID: fromPgUUID(dbID),
			TableName:  tableName,
			Operation:  operation,
			Detail:     detail.String,
			DurationMs: int(durationMs),
			IsError:    isError,
			CreatedAt:  createdAt.Time,
		})
	}
	return result, rows.Err()
}
