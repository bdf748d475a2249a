package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/litecove/litecove/internal/adapter/auth"
	"github.com/litecove/litecove/internal/core/port"
)

// --- Database registry endpoints ---

type createDatabaseRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateDatabase() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDatabaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		rec, err := s.svc.Databases.CreateDatabase(r.Context(), req.Name)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) handleListDatabases() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.svc.Databases.ListDatabases(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		// Scoped keys only see their own databases.
		result := authFromContext(r.Context())
		if result != nil && len(result.DatabaseIDs) > 0 {
			filtered := records[:0]
			for _, rec := range records {
				if keyAllowsDatabase(result, rec.ID) {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}
		if records == nil {
			records = []port.DatabaseRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) handleDeleteDatabase() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid database id")
			return
		}
		if err := s.svc.Databases.DeleteDatabase(r.Context(), id); err != nil {
			s.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- API key endpoints ---

type createKeyRequest struct {
	Name       string `json:"name"`
	DatabaseID string `json:"database_id,omitempty"`
}

type createKeyResponse struct {
	ID            string `json:"id"`
	Key           string `json:"key"`
	DisplayPrefix string `json:"display_prefix"`
	Name          string `json:"name"`
	DatabaseID    string `json:"database_id,omitempty"`
}

func (s *Server) handleCreateKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		var databaseID *uuid.UUID
		if req.DatabaseID != "" {
			id, err := uuid.Parse(req.DatabaseID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid database_id")
				return
			}
			databaseID = &id
		}

		fullKey, hash, prefix, err := auth.GenerateKey()
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		rec, err := s.svc.Keys.CreateAPIKey(r.Context(), req.Name, hash, prefix, databaseID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		resp := createKeyResponse{
			ID:            rec.ID.String(),
			Key:           fullKey,
			DisplayPrefix: rec.DisplayPrefix,
			Name:          rec.Name,
		}
		if rec.DatabaseID != nil {
			resp.DatabaseID = rec.DatabaseID.String()
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func (s *Server) handleListKeys() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.svc.Keys.ListAPIKeys(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) handleRevokeKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid key id")
			return
		}
		if err := s.svc.Keys.RevokeAPIKey(r.Context(), id); err != nil {
			s.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- Mutation audit log ---

func (s *Server) handleListMutationLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 1000 {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
				return
			}
			limit = n
		}

		var databaseID *uuid.UUID
		if raw := r.URL.Query().Get("database_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid database_id")
				return
			}
			databaseID = &id
		}

		records, err := s.svc.MutationLogs.ListMutationLogs(r.Context(), databaseID, limit)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}
