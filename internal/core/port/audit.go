package port

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MutationEntry records one schema mutation attempt against a hosted database.
type MutationEntry struct {
	DatabaseID uuid.UUID
	TableName  string
	Operation  string
	Detail     string
	DurationMs int
	IsError    bool
}

// MutationLogRecord is a persisted mutation entry.
type MutationLogRecord struct {
	ID         uuid.UUID `json:"id"`
	DatabaseID uuid.UUID `json:"database_id"`
	TableName  string    `json:"table_name"`
	Operation  string    `json:"operation"`
	Detail     string    `json:"detail,omitempty"`
	DurationMs int       `json:"duration_ms"`
	IsError    bool      `json:"is_error"`
	CreatedAt  time.Time `json:"created_at"`
}

// MutationLogRepository persists mutation entries in batches.
type MutationLogRepository interface {
	InsertBatch(ctx context.Context, entries []MutationEntry) error
	ListMutationLogs(ctx context.Context, databaseID *uuid.UUID, limit int) ([]MutationLogRecord, error)
}

// MutationAuditor accepts mutation entries without blocking the mutation path.
type MutationAuditor interface {
	Log(entry MutationEntry)
}
