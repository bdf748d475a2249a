package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/litecove/litecove/internal/core/port"
)

type contextKey string

const authResultKey contextKey = "authResult"

// requestLogger is a chi-compatible middleware that emits structured log lines
// for every HTTP request using slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("remote_addr", r.RemoteAddr),
		)
	})
}

// apiKeyAuth authenticates the Bearer token, rate-limits per key, and stores
// the auth result in the request context.
func (s *Server) apiKeyAuth(authenticator port.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")

			result, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				s.logger.Error("auth error", slog.String("error", err.Error()))
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if result == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !s.apiLimiter.Allow(result.KeyID.String()) {
				retryAfter := s.apiLimiter.RetryAfter(result.KeyID.String())
				w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			ctx := context.WithValue(r.Context(), authResultKey, result)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authFromContext returns the auth result stored by apiKeyAuth.
func authFromContext(ctx context.Context) *port.AuthResult {
	result, _ := ctx.Value(authResultKey).(*port.AuthResult)
	return result
}

// keyAllowsDatabase reports whether the authenticated key may act on the
// given database. A key with no database scope may act on all of them.
func keyAllowsDatabase(result *port.AuthResult, databaseID uuid.UUID) bool {
	if result == nil {
		return false
	}
	if len(result.DatabaseIDs) == 0 {
		return true
	}
	for _, id := range result.DatabaseIDs {
		if id == databaseID {
			return true
		}
	}
	return false
}

const databaseIDKey contextKey = "databaseID"

// databaseScope parses the {id} URL parameter and rejects keys that are not
// scoped to that database.
func (s *Server) databaseScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		databaseID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid database id")
			return
		}
		if !keyAllowsDatabase(authFromContext(r.Context()), databaseID) {
			writeError(w, http.StatusForbidden, "api key not scoped to this database")
			return
		}
		ctx := context.WithValue(r.Context(), databaseIDKey, databaseID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// databaseIDFromContext returns the database ID stored by databaseScope.
func databaseIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(databaseIDKey).(uuid.UUID)
	return id
}

// requireAdminKey rejects database-scoped keys on registry management routes.
func (s *Server) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := authFromContext(r.Context())
		if result == nil || len(result.DatabaseIDs) > 0 {
			writeError(w, http.StatusForbidden, "admin key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
