package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/litecove/litecove/internal/core/domain"
	"github.com/litecove/litecove/internal/core/port"
)

// tableCountWarningThreshold is the schema size beyond which a graph build
// gets a cost warning: the build issues one metadata query per table per
// metadata kind, so cost is linear in table count.
const tableCountWarningThreshold = 200

// GraphService assembles the foreign-key graph of a database from live
// introspection. Graphs are request-local values: built fresh per request,
// used for one decision, and discarded.
type GraphService struct {
	introspector port.SchemaIntrospector
	logger       *slog.Logger
}

// NewGraphService creates a GraphService.
func NewGraphService(introspector port.SchemaIntrospector, logger *slog.Logger) *GraphService {
	return &GraphService{
		introspector: introspector,
		logger:       logger.With(slog.String("component", "graph")),
	}
}

// BuildGraph fetches columns, row count, and foreign keys for every user
// table and assembles the directed graph. A transient failure on one table
// skips that table's contribution and continues: a partial graph still lets
// the caller reason about the rest of the schema, so partial beats fatal.
func (s *GraphService) BuildGraph(ctx context.Context, databaseID uuid.UUID) (*domain.Graph, error) {
	tables, err := s.introspector.ListTables(ctx, databaseID)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}

	graph := domain.NewGraph()

	var names []string
	for _, t := range tables {
		if t.Type == "table" {
			names = append(names, t.Name)
		}
	}
	if len(names) > tableCountWarningThreshold {
		msg := fmt.Sprintf("schema has %d tables; graph build issues several metadata queries per table", len(names))
		graph.Warnings = append(graph.Warnings, msg)
		s.logger.Warn("large schema",
			slog.String("database_id", databaseID.String()),
			slog.Int("table_count", len(names)),
		)
	}

	type pendingEdge struct {
		source string
		record port.ForeignKeyRecord
	}
	var pending []pendingEdge

	for _, name := range names {
		cols, err := s.introspector.TableInfo(ctx, databaseID, name)
		if err != nil {
			s.markFailed(graph, databaseID, name, "columns", err)
			continue
		}

		node := &domain.TableNode{Name: name, Columns: make([]domain.Column, 0, len(cols))}
		for _, c := range cols {
			node.Columns = append(node.Columns, domain.Column{
				Name:      c.Name,
				Type:      c.Type,
				NotNull:   c.NotNull,
				Default:   c.DefaultValue,
				PKOrdinal: c.PKOrdinal,
			})
		}

		if node.RowCount, err = s.introspector.RowCount(ctx, databaseID, name); err != nil {
			graph.Warnings = append(graph.Warnings, fmt.Sprintf("row count of %s unavailable: %v", name, err))
			s.logger.Warn("row count failed",
				slog.String("table", name),
				slog.String("error", err.Error()),
			)
		}
		graph.Nodes[name] = node

		fks, err := s.introspector.ForeignKeys(ctx, databaseID, name)
		if err != nil {
			s.markFailed(graph, databaseID, name, "foreign keys", err)
			continue
		}
		for _, fk := range fks {
			pending = append(pending, pendingEdge{source: name, record: fk})
		}
	}

	// Edges are attached after all nodes are known so that a reference to a
	// missing table (dropped mid-build, or excluded) never dangles.
	for _, p := range pending {
		if _, ok := graph.Nodes[p.record.Table]; !ok {
			graph.Warnings = append(graph.Warnings, fmt.Sprintf(
				"foreign key %s.%s references unknown table %s; edge skipped",
				p.source, p.record.From, p.record.Table))
			continue
		}
		onDelete, err := domain.NormalizeAction(p.record.OnDelete)
		if err != nil {
			graph.Warnings = append(graph.Warnings, fmt.Sprintf(
				"foreign key %s.%s: %v; treating as NO ACTION", p.source, p.record.From, err))
			onDelete = domain.ActionNoAction
		}
		onUpdate, err := domain.NormalizeAction(p.record.OnUpdate)
		if err != nil {
			onUpdate = domain.ActionNoAction
		}
		graph.Edges = append(graph.Edges, domain.NewForeignKeyEdge(
			p.source, p.record.From, p.record.Table, p.record.To, onDelete, onUpdate))
	}

	return graph, nil
}

func (s *GraphService) markFailed(graph *domain.Graph, databaseID uuid.UUID, table, kind string, err error) {
	graph.Incomplete = true
	graph.FailedTables = append(graph.FailedTables, table)
	graph.Warnings = append(graph.Warnings, fmt.Sprintf("%s of %s unavailable: %v", kind, table, err))
	s.logger.Warn("graph build skipped table",
		slog.String("database_id", databaseID.String()),
		slog.String("table", table),
		slog.String("metadata", kind),
		slog.String("error", err.Error()),
	)
}
