package domain

import (
	"fmt"
	"strings"
)

// TableDef is a structured table definition: a column list plus a constraint
// list. Mutations edit this structure and render fresh DDL from it instead of
// pattern-matching existing CREATE TABLE text.
type TableDef struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKeyClause
}

// ForeignKeyClause is one table-level FOREIGN KEY constraint.
type ForeignKeyClause struct {
	SourceColumn string
	TargetTable  string
	TargetColumn string
	OnDelete     Action
	OnUpdate     Action
}

// TableDefFromNode builds a definition from an introspected node and the
// foreign-key edges sourced at it.
func TableDefFromNode(node *TableNode, edges []ForeignKeyEdge) *TableDef {
	def := &TableDef{
		Name:    node.Name,
		Columns: append([]Column(nil), node.Columns...),
	}
	for _, e := range edges {
		if e.SourceTable != node.Name {
			continue
		}
		def.ForeignKeys = append(def.ForeignKeys, ForeignKeyClause{
			SourceColumn: e.SourceColumn,
			TargetTable:  e.TargetTable,
			TargetColumn: e.TargetColumn,
			OnDelete:     e.OnDelete,
			OnUpdate:     e.OnUpdate,
		})
	}
	return def
}

// ColumnNames returns the column names in definition order.
func (d *TableDef) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// DropColumn removes a column and any foreign keys sourced at it.
// Returns false if the column is not present.
func (d *TableDef) DropColumn(name string) bool {
	idx := -1
	for i, c := range d.Columns {
		if c.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	d.Columns = append(d.Columns[:idx], d.Columns[idx+1:]...)
	kept := d.ForeignKeys[:0]
	for _, fk := range d.ForeignKeys {
		if fk.SourceColumn != name {
			kept = append(kept, fk)
		}
	}
	d.ForeignKeys = kept
	return true
}

// ReplaceColumn swaps the definition of the named column in place.
// Returns false if the column is not present.
func (d *TableDef) ReplaceColumn(name string, col Column) bool {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			d.Columns[i] = col
			return true
		}
	}
	return false
}

// RemoveForeignKey removes the clause matching the given constraint ID.
// Returns false if no clause matches.
func (d *TableDef) RemoveForeignKey(constraintID string) bool {
	for i, fk := range d.ForeignKeys {
		if ConstraintID(d.Name, fk.SourceColumn, fk.TargetTable, fk.TargetColumn) == constraintID {
			d.ForeignKeys = append(d.ForeignKeys[:i], d.ForeignKeys[i+1:]...)
			return true
		}
	}
	return false
}

// Render emits CREATE TABLE text for the definition under the given table
// name (the mutation engine stages under a temporary name, then renames).
func (d *TableDef) Render(tableName string) string {
	var parts []string
	pk := pkColumns(d.Columns)
	for _, c := range d.Columns {
		parts = append(parts, renderColumn(c, len(pk) == 1 && pk[0] == c.Name))
	}
	if len(pk) > 1 {
		quoted := make([]string, len(pk))
		for i, name := range pk {
			quoted[i] = QuoteIdentifier(name)
		}
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	for _, fk := range d.ForeignKeys {
		parts = append(parts, renderForeignKey(fk))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdentifier(tableName), strings.Join(parts, ", "))
}

func renderColumn(c Column, inlinePK bool) string {
	var b strings.Builder
	b.WriteString(QuoteIdentifier(c.Name))
	if c.Type != "" {
		b.WriteString(" " + c.Type)
	}
	if inlinePK {
		b.WriteString(" PRIMARY KEY")
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT " + QuoteDefaultLiteral(*c.Default))
	}
	return b.String()
}

func renderForeignKey(fk ForeignKeyClause) string {
	clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
		QuoteIdentifier(fk.SourceColumn),
		QuoteIdentifier(fk.TargetTable),
		QuoteIdentifier(fk.TargetColumn),
	)
	if fk.OnDelete != "" && fk.OnDelete != ActionNoAction {
		clause += " ON DELETE " + string(fk.OnDelete)
	}
	if fk.OnUpdate != "" && fk.OnUpdate != ActionNoAction {
		clause += " ON UPDATE " + string(fk.OnUpdate)
	}
	return clause
}

func pkColumns(cols []Column) []string {
	var pk []string
	for ord := 1; ; ord++ {
		found := false
		for _, c := range cols {
			if c.PKOrdinal == ord {
				pk = append(pk, c.Name)
				found = true
				break
			}
		}
		if !found {
			return pk
		}
	}
}
