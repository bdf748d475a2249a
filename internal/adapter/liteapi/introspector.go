// Package liteapi implements schema introspection for SQLite-family engines
// on top of the generic remote query executor. The control plane never opens
// a database file; every metadata read is a statement shipped through the
// execution API.
package liteapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/litecove/litecove/internal/core/domain"
	"github.com/litecove/litecove/internal/core/port"
)

// internalTablePrefix marks tables owned by the service itself; they are
// invisible to schema browsing and mutation, like the engine's sqlite_ tables.
const internalTablePrefix = "_litecove_"

// Introspector implements port.SchemaIntrospector over a QueryExecutor.
type Introspector struct {
	executor port.QueryExecutor
}

// NewIntrospector creates an Introspector backed by the given executor.
func NewIntrospector(executor port.QueryExecutor) *Introspector {
	return &Introspector{executor: executor}
}

// ListTables returns user tables and views, excluding engine-internal and
// service-internal names.
func (in *Introspector) ListTables(ctx context.Context, databaseID uuid.UUID) ([]port.TableRef, error) {
	res, err := in.executor.Execute(ctx, databaseID, queryListTables)
	if err != nil {
		return nil, domain.TransientIOf(err, "listing tables")
	}

	var tables []port.TableRef
	for _, row := range res.Rows {
		name, err := rowString(row, "name")
		if err != nil {
			return nil, fmt.Errorf("table list row: %w", err)
		}
		if strings.HasPrefix(name, internalTablePrefix) {
			continue
		}
		typ, err := rowString(row, "type")
		if err != nil {
			return nil, fmt.Errorf("table list row: %w", err)
		}
		tables = append(tables, port.TableRef{Name: name, Type: typ})
	}
	return tables, nil
}

// TableInfo returns the column records for a table. A table the engine does
// not know yields zero PRAGMA rows, reported as NotFound.
func (in *Introspector) TableInfo(ctx context.Context, databaseID uuid.UUID, table string) ([]port.ColumnRecord, error) {
	ident, err := domain.SanitizeIdentifier(table)
	if err != nil {
		return nil, err
	}

	res, err := in.executor.Execute(ctx, databaseID, fmt.Sprintf(queryTableInfo, domain.QuoteIdentifier(ident)))
	if err != nil {
		return nil, domain.TransientIOf(err, "reading columns of %s", table)
	}
	if len(res.Rows) == 0 {
		return nil, domain.NotFoundf("table %q does not exist", table)
	}

	cols := make([]port.ColumnRecord, 0, len(res.Rows))
	for _, row := range res.Rows {
		var col port.ColumnRecord
		if col.Name, err = rowString(row, "name"); err != nil {
			return nil, fmt.Errorf("column row of %s: %w", table, err)
		}
		col.CID = int(rowInt(row, "cid"))
		col.Type, _ = rowString(row, "type")
		col.NotNull = rowInt(row, "notnull") != 0
		col.PKOrdinal = int(rowInt(row, "pk"))
		if v, ok := row["dflt_value"]; ok && v != nil {
			s := fmt.Sprintf("%v", v)
			col.DefaultValue = &s
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// ForeignKeys returns the foreign-key records declared on a table.
func (in *Introspector) ForeignKeys(ctx context.Context, databaseID uuid.UUID, table string) ([]port.ForeignKeyRecord, error) {
	ident, err := domain.SanitizeIdentifier(table)
	if err != nil {
		return nil, err
	}

	res, err := in.executor.Execute(ctx, databaseID, fmt.Sprintf(queryForeignKeys, domain.QuoteIdentifier(ident)))
	if err != nil {
		return nil, domain.TransientIOf(err, "reading foreign keys of %s", table)
	}

	fks := make([]port.ForeignKeyRecord, 0, len(res.Rows))
	for _, row := range res.Rows {
		var fk port.ForeignKeyRecord
		if fk.Table, err = rowString(row, "table"); err != nil {
			return nil, fmt.Errorf("foreign key row of %s: %w", table, err)
		}
		if fk.From, err = rowString(row, "from"); err != nil {
			return nil, fmt.Errorf("foreign key row of %s: %w", table, err)
		}
		fk.To, _ = rowString(row, "to")
		fk.OnUpdate, _ = rowString(row, "on_update")
		fk.OnDelete, _ = rowString(row, "on_delete")
		fks = append(fks, fk)
	}
	return fks, nil
}

// IndexList returns the indexes on a table.
func (in *Introspector) IndexList(ctx context.Context, databaseID uuid.UUID, table string) ([]port.IndexRecord, error) {
	ident, err := domain.SanitizeIdentifier(table)
	if err != nil {
		return nil, err
	}

	res, err := in.executor.Execute(ctx, databaseID, fmt.Sprintf(queryIndexList, domain.QuoteIdentifier(ident)))
	if err != nil {
		return nil, domain.TransientIOf(err, "reading indexes of %s", table)
	}

	idxs := make([]port.IndexRecord, 0, len(res.Rows))
	for _, row := range res.Rows {
		var idx port.IndexRecord
		if idx.Name, err = rowString(row, "name"); err != nil {
			return nil, fmt.Errorf("index row of %s: %w", table, err)
		}
		idx.Unique = rowInt(row, "unique") != 0
		idx.Origin, _ = rowString(row, "origin")
		idxs = append(idxs, idx)
	}
	return idxs, nil
}

// IndexColumns returns the column names covered by an index.
func (in *Introspector) IndexColumns(ctx context.Context, databaseID uuid.UUID, table, index string) ([]string, error) {
	ident, err := domain.SanitizeIdentifier(index)
	if err != nil {
		return nil, err
	}

	res, err := in.executor.Execute(ctx, databaseID, fmt.Sprintf(queryIndexInfo, domain.QuoteIdentifier(ident)))
	if err != nil {
		return nil, domain.TransientIOf(err, "reading columns of index %s", index)
	}

	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, err := rowString(row, "name")
		if err != nil {
			return nil, fmt.Errorf("index column row of %s: %w", index, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// RowCount returns the current number of rows in a table. Best-effort;
// callers re-query per operation and never cache across requests.
func (in *Introspector) RowCount(ctx context.Context, databaseID uuid.UUID, table string) (int64, error) {
	ident, err := domain.SanitizeIdentifier(table)
	if err != nil {
		return 0, err
	}

	res, err := in.executor.Execute(ctx, databaseID, fmt.Sprintf(queryRowCount, domain.QuoteIdentifier(ident)))
	if err != nil {
		return 0, domain.TransientIOf(err, "counting rows of %s", table)
	}
	if len(res.Rows) == 0 {
		return 0, fmt.Errorf("row count of %s: empty result", table)
	}
	return rowInt(res.Rows[0], "count"), nil
}

// rowString extracts a required string field from a result row.
func rowString(row map[string]any, key string) (string, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	return s, nil
}

// rowInt extracts a numeric field, tolerating the integer and float shapes
// produced by JSON transport and native drivers. Missing fields read as 0.
func rowInt(row map[string]any, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		var n int64
		_, _ = fmt.Sscanf(v, "%d", &n)
		return n
	default:
		return 0
	}
}
