package port

import (
	"context"

	"github.com/google/uuid"
)

// QueryResult is the outcome of one statement executed against the remote
// engine. Rows is nil for DDL/DML statements.
type QueryResult struct {
	Rows         []map[string]any `json:"rows,omitempty"`
	RowsAffected int64            `json:"rows_affected"`
}

// QueryExecutor runs a single SQL statement against the named remote
// database. Single-statement, synchronous request/response semantics; there
// are no multi-statement transactions across calls.
type QueryExecutor interface {
	Execute(ctx context.Context, databaseID uuid.UUID, sql string) (*QueryResult, error)
}
