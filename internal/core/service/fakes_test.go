package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/litecove/litecove/internal/core/port"
)

func newTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIntrospector serves fixed metadata keyed by table name, with per-table
// error injection.
type fakeIntrospector struct {
	tables    []port.TableRef
	columns   map[string][]port.ColumnRecord
	fks       map[string][]port.ForeignKeyRecord
	indexes   map[string][]port.IndexRecord
	indexCols map[string][]string // "table/index" -> column names
	rowCounts map[string]int64

	listErr      error
	tableInfoErr map[string]error
	fkErr        map[string]error
	rowCountErr  map[string]error
}

func newFakeIntrospector() *fakeIntrospector {
	return &fakeIntrospector{
		columns:      make(map[string][]port.ColumnRecord),
		fks:          make(map[string][]port.ForeignKeyRecord),
		indexes:      make(map[string][]port.IndexRecord),
		indexCols:    make(map[string][]string),
		rowCounts:    make(map[string]int64),
		tableInfoErr: make(map[string]error),
		fkErr:        make(map[string]error),
		rowCountErr:  make(map[string]error),
	}
}

// addTable registers a table with the given columns and row count. The first
// column is made the primary key.
func (f *fakeIntrospector) addTable(name string, rowCount int64, columnNames ...string) {
	f.tables = append(f.tables, port.TableRef{Name: name, Type: "table"})
	cols := make([]port.ColumnRecord, len(columnNames))
	for i, c := range columnNames {
		cols[i] = port.ColumnRecord{CID: i, Name: c, Type: "INTEGER"}
		if i == 0 {
			cols[i].PKOrdinal = 1
		}
	}
	f.columns[name] = cols
	f.rowCounts[name] = rowCount
}

// addFK registers source.column -> target.targetColumn with the given actions.
func (f *fakeIntrospector) addFK(source, column, target, targetColumn, onDelete, onUpdate string) {
	f.fks[source] = append(f.fks[source], port.ForeignKeyRecord{
		Table:    target,
		From:     column,
		To:       targetColumn,
		OnDelete: onDelete,
		OnUpdate: onUpdate,
	})
}

func (f *fakeIntrospector) ListTables(_ context.Context, _ uuid.UUID) ([]port.TableRef, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tables, nil
}

func (f *fakeIntrospector) TableInfo(_ context.Context, _ uuid.UUID, table string) ([]port.ColumnRecord, error) {
	if err := f.tableInfoErr[table]; err != nil {
		return nil, err
	}
	return f.columns[table], nil
}

func (f *fakeIntrospector) ForeignKeys(_ context.Context, _ uuid.UUID, table string) ([]port.ForeignKeyRecord, error) {
	if err := f.fkErr[table]; err != nil {
		return nil, err
	}
	return f.fks[table], nil
}

func (f *fakeIntrospector) IndexList(_ context.Context, _ uuid.UUID, table string) ([]port.IndexRecord, error) {
	return f.indexes[table], nil
}

func (f *fakeIntrospector) IndexColumns(_ context.Context, _ uuid.UUID, table, index string) ([]string, error) {
	return f.indexCols[table+"/"+index], nil
}

func (f *fakeIntrospector) RowCount(_ context.Context, _ uuid.UUID, table string) (int64, error) {
	if err := f.rowCountErr[table]; err != nil {
		return 0, err
	}
	return f.rowCounts[table], nil
}

// fakeExecutor records every statement and answers through respond; when
// respond is nil every statement succeeds with an empty result.
type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	respond  func(sql string) (*port.QueryResult, error)
}

func (f *fakeExecutor) Execute(_ context.Context, _ uuid.UUID, sql string) (*port.QueryResult, error) {
	f.mu.Lock()
	f.executed = append(f.executed, sql)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(sql)
	}
	return &port.QueryResult{}, nil
}

func (f *fakeExecutor) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

func countResult(n int64) *port.QueryResult {
	return &port.QueryResult{Rows: []map[string]any{{"count": n}}}
}

// fakeAuditor records mutation entries synchronously.
type fakeAuditor struct {
	mu      sync.Mutex
	entries []port.MutationEntry
}

func (f *fakeAuditor) Log(entry port.MutationEntry) {
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
}

func (f *fakeAuditor) logged() []port.MutationEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]port.MutationEntry(nil), f.entries...)
}
