package port

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DatabaseRecord is the control plane's metadata record for one hosted database.
type DatabaseRecord struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// DatabaseRepository provides access to database metadata records.
type DatabaseRepository interface {
	CreateDatabase(ctx context.Context, name string) (*DatabaseRecord, error)
	GetDatabaseByID(ctx context.Context, id uuid.UUID) (*DatabaseRecord, error)
	ListDatabases(ctx context.Context) ([]DatabaseRecord, error)
	UpdateDatabaseStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteDatabase(ctx context.Context, id uuid.UUID) error
}

// APIKeyRecord is the stored metadata for one API key. Only the SHA-256 hash
// of the key is persisted.
type APIKeyRecord struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	KeyHash       string     `json:"-"`
	DisplayPrefix string     `json:"display_prefix"`
	DatabaseID    *uuid.UUID `json:"database_id,omitempty"`
	Revoked       bool       `json:"revoked"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
}

// APIKeyRepository provides access to API key records.
type APIKeyRepository interface {
	CreateAPIKey(ctx context.Context, name, keyHash, displayPrefix string, databaseID *uuid.UUID) (*APIKeyRecord, error)
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*APIKeyRecord, error)
	ListAPIKeys(ctx context.Context) ([]APIKeyRecord, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
	TouchAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
}
