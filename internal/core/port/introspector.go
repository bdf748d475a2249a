package port

import (
	"context"

	"github.com/google/uuid"
)

// TableRef is one entry in the database's table list.
type TableRef struct {
	Name string `json:"name"`
	Type string `json:"type"` // "table" or "view"
}

// ColumnRecord is one row of column metadata. PKOrdinal is the 1-based
// position within the primary key, 0 when the column is not part of it.
type ColumnRecord struct {
	CID          int     `json:"cid"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	NotNull      bool    `json:"not_null"`
	DefaultValue *string `json:"default_value,omitempty"`
	PKOrdinal    int     `json:"pk_ordinal"`
}

// ForeignKeyRecord is one row of foreign-key metadata for a source table:
// the local column From references Table.To.
type ForeignKeyRecord struct {
	Table    string `json:"table"`
	From     string `json:"from"`
	To       string `json:"to"`
	OnUpdate string `json:"on_update"`
	OnDelete string `json:"on_delete"`
}

// IndexRecord is one row of index metadata. Origin distinguishes
// user-created indexes ("c") from those the engine creates automatically.
type IndexRecord struct {
	Name   string `json:"name"`
	Unique bool   `json:"unique"`
	Origin string `json:"origin"`
}

// SchemaIntrospector issues read-only metadata queries against the remote
// execution API and returns typed records validated at this boundary.
// Everything above it operates on these stable types, never on raw rows.
type SchemaIntrospector interface {
	ListTables(ctx context.Context, databaseID uuid.UUID) ([]TableRef, error)
	TableInfo(ctx context.Context, databaseID uuid.UUID, table string) ([]ColumnRecord, error)
	ForeignKeys(ctx context.Context, databaseID uuid.UUID, table string) ([]ForeignKeyRecord, error)
	IndexList(ctx context.Context, databaseID uuid.UUID, table string) ([]IndexRecord, error)
	IndexColumns(ctx context.Context, databaseID uuid.UUID, table, index string) ([]string, error)
	RowCount(ctx context.Context, databaseID uuid.UUID, table string) (int64, error)
}
