package domain

import (
	"fmt"
	"strings"
)

// Action is the ON DELETE / ON UPDATE behavior of a foreign key.
type Action string

const (
	ActionCascade    Action = "CASCADE"
	ActionSetNull    Action = "SET NULL"
	ActionSetDefault Action = "SET DEFAULT"
	ActionRestrict   Action = "RESTRICT"
	ActionNoAction   Action = "NO ACTION"
)

// NormalizeAction upper-cases an action keyword and applies the engine
// default (NO ACTION) when the keyword is absent. Unknown keywords are
// rejected with ErrValidationFailed.
func NormalizeAction(s string) (Action, error) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if normalized == "" {
		return ActionNoAction, nil
	}
	switch Action(normalized) {
	case ActionCascade, ActionSetNull, ActionSetDefault, ActionRestrict, ActionNoAction:
		return Action(normalized), nil
	default:
		return "", ValidationFailedf("invalid foreign key action %q", s)
	}
}

// Column is an immutable column snapshot taken at introspection time.
// PKOrdinal is the 1-based position within the primary key, 0 if not part of it.
type Column struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	NotNull   bool    `json:"not_null"`
	Default   *string `json:"default,omitempty"`
	PKOrdinal int     `json:"pk_ordinal"`
}

// TableNode is one table in the foreign-key graph. RowCount is best-effort,
// re-queried per operation and never cached across requests.
type TableNode struct {
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// Column returns the named column, if present.
func (n *TableNode) Column(name string) (*Column, bool) {
	for i := range n.Columns {
		if n.Columns[i].Name == name {
			return &n.Columns[i], true
		}
	}
	return nil, false
}

// PrimaryKey returns the primary key column names in ordinal order.
func (n *TableNode) PrimaryKey() []string {
	var pk []string
	for ord := 1; ; ord++ {
		found := false
		for i := range n.Columns {
			if n.Columns[i].PKOrdinal == ord {
				pk = append(pk, n.Columns[i].Name)
				found = true
				break
			}
		}
		if !found {
			return pk
		}
	}
}

// ForeignKeyEdge is one foreign-key constraint: SourceTable.SourceColumn
// references TargetTable.TargetColumn. Multiple edges between the same table
// pair are permitted and never merged.
type ForeignKeyEdge struct {
	ID           string `json:"id"`
	SourceTable  string `json:"source_table"`
	SourceColumn string `json:"source_column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
	OnDelete     Action `json:"on_delete"`
	OnUpdate     Action `json:"on_update"`
}

// NewForeignKeyEdge builds an edge with its derived stable identifier.
func NewForeignKeyEdge(sourceTable, sourceColumn, targetTable, targetColumn string, onDelete, onUpdate Action) ForeignKeyEdge {
	return ForeignKeyEdge{
		ID:           ConstraintID(sourceTable, sourceColumn, targetTable, targetColumn),
		SourceTable:  sourceTable,
		SourceColumn: sourceColumn,
		TargetTable:  targetTable,
		TargetColumn: targetColumn,
		OnDelete:     onDelete,
		OnUpdate:     onUpdate,
	}
}

// ConstraintID derives the stable identifier for a foreign-key constraint.
func ConstraintID(sourceTable, sourceColumn, targetTable, targetColumn string) string {
	return fmt.Sprintf("fk_%s_%s_%s_%s", sourceTable, sourceColumn, targetTable, targetColumn)
}

// CheckConstraintID verifies that id has the fk_ prefix and enough segments
// to hold the four name components. Because table and column names may
// themselves contain underscores, resolution against a concrete edge list is
// done by exact ID match; this check only rejects names that cannot possibly
// parse.
func CheckConstraintID(id string) error {
	rest, ok := strings.CutPrefix(id, "fk_")
	if !ok {
		return fmt.Errorf("%w: %q does not start with fk_", ErrConstraintNameMalformed, id)
	}
	if parts := strings.Split(rest, "_"); len(parts) < 4 {
		return fmt.Errorf("%w: %q does not contain four components", ErrConstraintNameMalformed, id)
	}
	return nil
}

// Graph is the node and edge set for one database at one point in time.
// It is built fresh for every detection, simulation, or mutation request
// and never persisted. Incomplete is set when one or more tables could not
// be fully introspected; the graph still covers the rest of the schema.
type Graph struct {
	Nodes        map[string]*TableNode `json:"nodes"`
	Edges        []ForeignKeyEdge      `json:"edges"`
	Incomplete   bool                  `json:"incomplete"`
	FailedTables []string              `json:"failed_tables,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*TableNode)}
}

// Node returns the named table node, if present.
func (g *Graph) Node(table string) (*TableNode, bool) {
	n, ok := g.Nodes[table]
	return n, ok
}

// EdgesFrom returns edges whose source is table (table references others).
func (g *Graph) EdgesFrom(table string) []ForeignKeyEdge {
	var out []ForeignKeyEdge
	for _, e := range g.Edges {
		if e.SourceTable == table {
			out = append(out, e)
		}
	}
	return out
}

// EdgesInto returns edges whose target is table (others reference table).
func (g *Graph) EdgesInto(table string) []ForeignKeyEdge {
	var out []ForeignKeyEdge
	for _, e := range g.Edges {
		if e.TargetTable == table {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a copy of the graph whose edge slice can be extended without
// mutating the original. Nodes are shared; they are read-only snapshots.
func (g *Graph) Clone() *Graph {
	nodes := make(map[string]*TableNode, len(g.Nodes))
	for k, v := range g.Nodes {
		nodes[k] = v
	}
	edges := make([]ForeignKeyEdge, len(g.Edges))
	copy(edges, g.Edges)
	return &Graph{
		Nodes:        nodes,
		Edges:        edges,
		Incomplete:   g.Incomplete,
		FailedTables: append([]string(nil), g.FailedTables...),
		Warnings:     append([]string(nil), g.Warnings...),
	}
}
