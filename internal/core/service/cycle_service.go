package service

import (
	"log/slog"
	"sort"

	"github.com/litecove/litecove/internal/core/domain"
)

// CycleService finds and reasons about circular reference chains in the
// foreign-key graph. It operates purely on in-memory graphs and issues no
// queries of its own.
type CycleService struct {
	logger *slog.Logger
}

// NewCycleService creates a CycleService.
func NewCycleService(logger *slog.Logger) *CycleService {
	return &CycleService{logger: logger.With(slog.String("component", "cycles"))}
}

// CycleCheck is the answer to a would-adding-this-edge-create-a-cycle query.
type CycleCheck struct {
	WouldCreateCycle bool          `json:"would_create_cycle"`
	Cycle            *domain.Cycle `json:"cycle,omitempty"`
}

// BreakPointSuggestion is an advisory proposal to weaken one edge of a cycle.
type BreakPointSuggestion struct {
	ConstraintID    string        `json:"constraint_id"`
	SourceTable     string        `json:"source_table"`
	TargetTable     string        `json:"target_table"`
	CurrentAction   domain.Action `json:"current_action"`
	ProposedActions []string      `json:"proposed_actions"`
	Rationale       string        `json:"rationale"`
}

// DetectCycles finds all elementary cycles in the graph via depth-first
// search with a recursion stack, deduplicating rotations and mirror images
// through each cycle's canonical key.
func (s *CycleService) DetectCycles(graph *domain.Graph) []domain.Cycle {
	names := make([]string, 0, len(graph.Nodes))
	for name := range graph.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	d := &cycleDetector{
		graph:   graph,
		visited: make(map[string]bool),
		onStack: make(map[string]bool),
		seen:    make(map[string]bool),
	}
	for _, name := range names {
		if !d.visited[name] {
			d.visit(name)
		}
	}
	return d.cycles
}

type cycleDetector struct {
	graph   *domain.Graph
	visited map[string]bool
	onStack map[string]bool
	stack   []string
	edges   []domain.ForeignKeyEdge // edge i connects stack[i] -> stack[i+1]
	seen    map[string]bool
	cycles  []domain.Cycle
}

func (d *cycleDetector) visit(table string) {
	d.visited[table] = true
	d.onStack[table] = true
	d.stack = append(d.stack, table)

	for _, edge := range d.graph.EdgesFrom(table) {
		if _, ok := d.graph.Nodes[edge.TargetTable]; !ok {
			continue
		}
		if d.onStack[edge.TargetTable] {
			d.extractCycle(edge)
			continue
		}
		if !d.visited[edge.TargetTable] {
			d.edges = append(d.edges, edge)
			d.visit(edge.TargetTable)
			d.edges = d.edges[:len(d.edges)-1]
		}
	}

	d.stack = d.stack[:len(d.stack)-1]
	delete(d.onStack, table)
}

// extractCycle lifts the sub-path from the closing edge's target back to the
// top of the stack, inclusive of the closing edge itself.
func (d *cycleDetector) extractCycle(closing domain.ForeignKeyEdge) {
	start := 0
	for i, t := range d.stack {
		if t == closing.TargetTable {
			start = i
			break
		}
	}
	tables := append([]string(nil), d.stack[start:]...)
	edges := append([]domain.ForeignKeyEdge(nil), d.edges[start:]...)
	edges = append(edges, closing)

	key := domain.CanonicalCycleKey(tables)
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.cycles = append(d.cycles, domain.NewCycle(tables, edges))
}

// WouldCreateCycle answers whether adding a foreign key source -> target
// would close a loop. It inserts a synthetic NO ACTION edge into a copy of
// the graph and checks whether any resulting cycle traverses the candidate
// edge itself; a pre-existing cycle elsewhere does not count. The input
// graph is never mutated.
func (s *CycleService) WouldCreateCycle(graph *domain.Graph, sourceTable, targetTable string) (*CycleCheck, error) {
	if _, ok := graph.Nodes[sourceTable]; !ok {
		return nil, domain.NotFoundf("table %q does not exist", sourceTable)
	}
	if _, ok := graph.Nodes[targetTable]; !ok {
		return nil, domain.NotFoundf("table %q does not exist", targetTable)
	}

	candidate := graph.Clone()
	candidate.Edges = append(candidate.Edges, domain.NewForeignKeyEdge(
		sourceTable, "_candidate", targetTable, "_candidate",
		domain.ActionNoAction, domain.ActionNoAction))

	for _, cycle := range s.DetectCycles(candidate) {
		if cycleTraverses(cycle, sourceTable, targetTable) {
			c := cycle
			return &CycleCheck{WouldCreateCycle: true, Cycle: &c}, nil
		}
	}
	return &CycleCheck{}, nil
}

// cycleTraverses reports whether target immediately follows source in the
// cycle's circular table order — i.e. the candidate edge participates in it.
func cycleTraverses(cycle domain.Cycle, source, target string) bool {
	n := len(cycle.Tables)
	for i, t := range cycle.Tables {
		if t == source && cycle.Tables[(i+1)%n] == target {
			return true
		}
	}
	return false
}

// SuggestBreakPoints proposes, for each edge of a cycle, a weaker action that
// would break or defuse the loop. Purely advisory; nothing is mutated.
func (s *CycleService) SuggestBreakPoints(cycle domain.Cycle, graph *domain.Graph) []BreakPointSuggestion {
	var out []BreakPointSuggestion
	for _, edge := range cycle.Edges {
		switch edge.OnDelete {
		case domain.ActionCascade:
			out = append(out, BreakPointSuggestion{
				ConstraintID:    edge.ID,
				SourceTable:     edge.SourceTable,
				TargetTable:     edge.TargetTable,
				CurrentAction:   edge.OnDelete,
				ProposedActions: []string{string(domain.ActionRestrict), string(domain.ActionSetNull)},
				Rationale:       "CASCADE inside a cycle risks unbounded or surprising deletion chains",
			})
		case domain.ActionNoAction:
			out = append(out, BreakPointSuggestion{
				ConstraintID:    edge.ID,
				SourceTable:     edge.SourceTable,
				TargetTable:     edge.TargetTable,
				CurrentAction:   edge.OnDelete,
				ProposedActions: []string{"REMOVE", string(domain.ActionSetNull)},
				Rationale:       "NO ACTION edge is a weak link; removing it or using SET NULL breaks the cycle",
			})
		}
	}
	return out
}
