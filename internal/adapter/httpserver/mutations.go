package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/litecove/litecove/internal/core/service"
)

// mutationResponse flattens MutationResult and exposes the duration in
// milliseconds, matching the mutation log rows.
type mutationResponse struct {
	*service.MutationResult
	DurationMs int64 `json:"duration_ms"`
}

func writeMutation(w http.ResponseWriter, result *service.MutationResult) {
	writeJSON(w, http.StatusOK, mutationResponse{
		MutationResult: result,
		DurationMs:     result.Duration.Milliseconds(),
	})
}

func (s *Server) handleAddColumn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())
		table := chi.URLParam(r, "table")

		var spec service.ColumnSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.svc.Mutations.AddColumn(r.Context(), databaseID, table, spec)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeMutation(w, result)
	}
}

func (s *Server) handleModifyColumn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())
		table := chi.URLParam(r, "table")
		column := chi.URLParam(r, "column")

		var spec service.ColumnSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.svc.Mutations.ModifyColumn(r.Context(), databaseID, table, column, spec)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeMutation(w, result)
	}
}

func (s *Server) handleDropColumn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())
		table := chi.URLParam(r, "table")
		column := chi.URLParam(r, "column")

		result, err := s.svc.Mutations.DropColumn(r.Context(), databaseID, table, column)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeMutation(w, result)
	}
}

func (s *Server) handleAddForeignKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())
		table := chi.URLParam(r, "table")

		var spec service.ForeignKeySpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.svc.Mutations.AddForeignKey(r.Context(), databaseID, table, spec)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeMutation(w, result)
	}
}

type modifyForeignKeyRequest struct {
	OnDelete string `json:"on_delete"`
	OnUpdate string `json:"on_update"`
}

func (s *Server) handleModifyForeignKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())
		table := chi.URLParam(r, "table")
		constraintID := chi.URLParam(r, "constraint")

		var req modifyForeignKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.svc.Mutations.ModifyForeignKey(r.Context(), databaseID, table, constraintID, req.OnDelete, req.OnUpdate)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeMutation(w, result)
	}
}

func (s *Server) handleRemoveForeignKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := databaseIDFromContext(r.Context())
		table := chi.URLParam(r, "table")
		constraintID := chi.URLParam(r, "constraint")

		result, err := s.svc.Mutations.RemoveForeignKey(r.Context(), databaseID, table, constraintID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeMutation(w, result)
	}
}
