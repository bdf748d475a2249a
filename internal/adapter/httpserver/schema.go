package httpserver

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/litecove/litecove/internal/core/domain"
	"github.com/litecove/litecove/internal/core/service"
)

// --- Schema browsing ---

type tableDetail struct {
	Name     string          `json:"name"`
	Columns  []domain.Column `json:"columns"`
	RowCount int64           `json:"row_count"`
}

type schemaResponse struct {
	Tables   []tableDetail `json:"tables"`
	Warnings []string      `json:"warnings,omitempty"`
}

func (s *Server) handleSchema() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())

		graph, err := s.svc.Graph.BuildGraph(r.Context(), databaseID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		resp := schemaResponse{
			Tables:   make([]tableDetail, 0, len(graph.Nodes)),
			Warnings: graph.Warnings,
		}
		for _, name := range sortedNodeNames(graph) {
			node := graph.Nodes[name]
			resp.Tables = append(resp.Tables, tableDetail{
				Name:     node.Name,
				Columns:  node.Columns,
				RowCount: node.RowCount,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// --- Dependency graph ---

func (s *Server) handleGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())

		graph, err := s.svc.Graph.BuildGraph(r.Context(), databaseID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, graph)
	}
}

// --- Cycle detection ---

type cycleWithSuggestions struct {
	domain.Cycle
	BreakPoints []service.BreakPointSuggestion `json:"break_points"`
}

type cyclesResponse struct {
	Cycles     []cycleWithSuggestions `json:"cycles"`
	Incomplete bool                   `json:"incomplete"`
	Warnings   []string               `json:"warnings,omitempty"`
}

func (s *Server) handleCycles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())

		graph, err := s.svc.Graph.BuildGraph(r.Context(), databaseID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		cycles := s.svc.Cycles.DetectCycles(graph)
		resp := cyclesResponse{
			Cycles:     make([]cycleWithSuggestions, 0, len(cycles)),
			Incomplete: graph.Incomplete,
			Warnings:   graph.Warnings,
		}
		for _, c := range cycles {
			resp.Cycles = append(resp.Cycles, cycleWithSuggestions{
				Cycle:       c,
				BreakPoints: s.svc.Cycles.SuggestBreakPoints(c, graph),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type cycleCheckRequest struct {
	SourceTable string `json:"source_table"`
	TargetTable string `json:"target_table"`
}

func (s *Server) handleCycleCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())

		var req cycleCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SourceTable == "" || req.TargetTable == "" {
			writeError(w, http.StatusBadRequest, "source_table and target_table are required")
			return
		}

		graph, err := s.svc.Graph.BuildGraph(r.Context(), databaseID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		check, err := s.svc.Cycles.WouldCreateCycle(graph, req.SourceTable, req.TargetTable)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, check)
	}
}

// --- Cascade simulation ---

type simulateDeleteRequest struct {
	Table     string `json:"table"`
	Predicate string `json:"predicate,omitempty"`
}

func (s *Server) handleSimulateDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())

		var req simulateDeleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Table == "" {
			writeError(w, http.StatusBadRequest, "table is required")
			return
		}

		graph, err := s.svc.Graph.BuildGraph(r.Context(), databaseID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		result, err := s.svc.Cascade.Simulate(r.Context(), databaseID, graph, req.Table, req.Predicate)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func sortedNodeNames(g *domain.Graph) []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	// Stable output ordering for API consumers.
	sort.Strings(names)
	return names
}
