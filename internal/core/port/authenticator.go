package port

import (
	"context"

	"github.com/google/uuid"
)

// AuthResult describes an authenticated API key. DatabaseIDs lists the
// databases the key is scoped to; empty means all databases.
type AuthResult struct {
	KeyID       uuid.UUID
	DatabaseIDs []uuid.UUID
}

// Authenticator validates a bearer token. A nil result with nil error means
// the token is unknown.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*AuthResult, error)
}
