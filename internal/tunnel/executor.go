package tunnel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/litecove/litecove/internal/core/domain"
	"github.com/litecove/litecove/internal/core/port"
)

// Executor adapts the tunnel registry to the query executor port. Transport
// failures surface as transient I/O errors; SQL errors reported by the agent
// surface as plain errors carrying the remote message.
type Executor struct {
	registry *Registry
}

// NewExecutor creates a query executor backed by the tunnel registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute forwards one SQL statement to the agent serving the database.
func (e *Executor) Execute(ctx context.Context, databaseID uuid.UUID, sql string) (*port.QueryResult, error) {
	res, err := e.registry.Forward(ctx, databaseID, sql)
	if err != nil {
		return nil, domain.TransientIOf(err, "forward query to database %s", databaseID)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("remote execution: %s", res.Error)
	}
	return &port.QueryResult{
		Rows:         res.Rows,
		RowsAffected: res.RowsAffected,
	}, nil
}
