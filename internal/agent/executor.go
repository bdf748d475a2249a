// Package agent provides the local SQLite query executor served through the
// tunnel by litecove-agent.
package agent

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/litecove/litecove/pkg/tunnel"
)

// ExecutorConfig controls how the agent executes SQL locally.
type ExecutorConfig struct {
	// ReadOnly rejects any statement that is not row-returning.
	ReadOnly bool
	// MaxRows truncates result sets larger than this. Zero means no limit.
	MaxRows int
}

// SQLiteExecutor runs statements against the agent's local SQLite file.
type SQLiteExecutor struct {
	db     *sql.DB
	cfg    ExecutorConfig
	logger *slog.Logger
}

// OpenSQLiteExecutor opens the database file and verifies connectivity.
func OpenSQLiteExecutor(ctx context.Context, path string, cfg ExecutorConfig, logger *slog.Logger) (*SQLiteExecutor, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows a single writer; one connection avoids SQLITE_BUSY
	// between the control plane's sequential statements.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return &SQLiteExecutor{db: db, cfg: cfg, logger: logger}, nil
}

// Close releases the underlying database handle.
func (e *SQLiteExecutor) Close() error {
	return e.db.Close()
}

// HandleQuery executes one statement. SQL failures are reported inside the
// Result so the control plane can distinguish them from transport failures.
func (e *SQLiteExecutor) HandleQuery(ctx context.Context, q *tunnel.Query) *tunnel.Result {
	if e.cfg.ReadOnly && !isRowReturning(q.SQL) {
		return &tunnel.Result{Error: "agent is read-only: statement rejected"}
	}

	if isRowReturning(q.SQL) {
		return e.query(ctx, q.SQL)
	}
	return e.exec(ctx, q.SQL)
}

func (e *SQLiteExecutor) query(ctx context.Context, sqlText string) *tunnel.Result {
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return &tunnel.Result{Error: err.Error()}
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return &tunnel.Result{Error: fmt.Sprintf("read columns: %v", err)}
	}

	var out []map[string]any
	for rows.Next() {
		if e.cfg.MaxRows > 0 && len(out) >= e.cfg.MaxRows {
			e.logger.Warn("result set truncated",
				slog.Int("max_rows", e.cfg.MaxRows),
			)
			break
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return &tunnel.Result{Error: fmt.Sprintf("scan row: %v", err)}
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return &tunnel.Result{Error: err.Error()}
	}

	return &tunnel.Result{Rows: out, RowsAffected: int64(len(out))}
}

func (e *SQLiteExecutor) exec(ctx context.Context, sqlText string) *tunnel.Result {
	res, err := e.db.ExecContext(ctx, sqlText)
	if err != nil {
		return &tunnel.Result{Error: err.Error()}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &tunnel.Result{RowsAffected: affected}
}

// normalizeValue converts driver values to JSON-friendly types. BLOBs come
// back as []byte, which would otherwise encode as base64.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// isRowReturning reports whether a statement produces a result set.
func isRowReturning(sqlText string) bool {
	keyword := firstKeyword(sqlText)
	switch keyword {
	case "SELECT", "PRAGMA", "EXPLAIN", "WITH", "VALUES":
		return true
	}
	return false
}

func firstKeyword(sqlText string) string {
	fields := strings.Fields(strings.TrimSpace(sqlText))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
