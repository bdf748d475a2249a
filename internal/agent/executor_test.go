package agent

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litecove/litecove/pkg/tunnel"
)

func newTestExecutor(t *testing.T, cfg ExecutorConfig) *SQLiteExecutor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec, err := OpenSQLiteExecutor(context.Background(), ":memory:", cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() }) //nolint:errcheck
	return exec
}

func runSQL(t *testing.T, exec *SQLiteExecutor, sqlText string) *tunnel.Result {
	t.Helper()
	res := exec.HandleQuery(context.Background(), &tunnel.Query{
		RequestID: "test",
		SQL:       sqlText,
	})
	require.Empty(t, res.Error, "statement failed: %s", sqlText)
	return res
}

func TestExecutorQueryAndExec(t *testing.T) {
	exec := newTestExecutor(t, ExecutorConfig{})

	runSQL(t, exec, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)

	res := runSQL(t, exec, `INSERT INTO users (name) VALUES ('alice'), ('bob')`)
	assert.Equal(t, int64(2), res.RowsAffected)

	res = runSQL(t, exec, `SELECT id, name FROM users ORDER BY id`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "alice", res.Rows[0]["name"])
	assert.Equal(t, "bob", res.Rows[1]["name"])
}

func TestExecutorPragma(t *testing.T) {
	exec := newTestExecutor(t, ExecutorConfig{})

	runSQL(t, exec, `CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id))`)

	res := runSQL(t, exec, `PRAGMA table_info(orders)`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "id", res.Rows[0]["name"])
	assert.Equal(t, "customer_id", res.Rows[1]["name"])
}

func TestExecutorSQLErrorReportedInResult(t *testing.T) {
	exec := newTestExecutor(t, ExecutorConfig{})

	res := exec.HandleQuery(context.Background(), &tunnel.Query{
		RequestID: "test",
		SQL:       "SELECT * FROM no_such_table",
	})
	assert.Contains(t, res.Error, "no_such_table")
}

func TestExecutorReadOnlyRejectsWrites(t *testing.T) {
	exec := newTestExecutor(t, ExecutorConfig{ReadOnly: true})

	res := exec.HandleQuery(context.Background(), &tunnel.Query{
		RequestID: "test",
		SQL:       "CREATE TABLE t (id INTEGER)",
	})
	assert.Contains(t, res.Error, "read-only")

	// Row-returning statements still work.
	res = runSQL(t, exec, "SELECT 1 AS one")
	require.Len(t, res.Rows, 1)
}

func TestExecutorMaxRowsClamp(t *testing.T) {
	exec := newTestExecutor(t, ExecutorConfig{MaxRows: 3})

	runSQL(t, exec, `CREATE TABLE nums (n INTEGER)`)
	runSQL(t, exec, `INSERT INTO nums VALUES (1), (2), (3), (4), (5)`)

	res := runSQL(t, exec, `SELECT n FROM nums ORDER BY n`)
	assert.Len(t, res.Rows, 3)
}

func TestIsRowReturning(t *testing.T) {
	assert.True(t, isRowReturning("SELECT 1"))
	assert.True(t, isRowReturning("  select * from t"))
	assert.True(t, isRowReturning("PRAGMA foreign_key_list(orders)"))
	assert.True(t, isRowReturning("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.False(t, isRowReturning("INSERT INTO t VALUES (1)"))
	assert.False(t, isRowReturning("ALTER TABLE t ADD COLUMN c TEXT"))
	assert.False(t, isRowReturning(""))
}
