package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/litecove/litecove/internal/core/domain"
	"github.com/litecove/litecove/internal/core/port"
)

// MemoryDatabaseRepository holds database records in memory. Used in
// static-key mode, where the registry is fixed by the environment and no
// metadata store is configured.
type MemoryDatabaseRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*port.DatabaseRecord
}

// NewMemoryDatabaseRepository creates a repository seeded with one record per
// database ID. Names default to the ID string.
func NewMemoryDatabaseRepository(databaseIDs []uuid.UUID) *MemoryDatabaseRepository {
	records := make(map[uuid.UUID]*port.DatabaseRecord, len(databaseIDs))
	for _, id := range databaseIDs {
		records[id] = &port.DatabaseRecord{
			ID:        id,
			Name:      id.String(),
			Status:    "disconnected",
			CreatedAt: time.Now(),
		}
	}
	return &MemoryDatabaseRepository{records: records}
}

func (r *MemoryDatabaseRepository) CreateDatabase(_ context.Context, name string) (*port.DatabaseRecord, error) {
	rec := &port.DatabaseRecord{
		ID:        uuid.New(),
		Name:      name,
		Status:    "disconnected",
		CreatedAt: time.Now(),
	}
	r.mu.Lock()
	r.records[rec.ID] = rec
	r.mu.Unlock()
	copied := *rec
	return &copied, nil
}

func (r *MemoryDatabaseRepository) GetDatabaseByID(_ context.Context, id uuid.UUID) (*port.DatabaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.NotFoundf("database %s", id)
	}
	copied := *rec
	return &copied, nil
}

func (r *MemoryDatabaseRepository) ListDatabases(_ context.Context) ([]port.DatabaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]port.DatabaseRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryDatabaseRepository) UpdateDatabaseStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.NotFoundf("database %s", id)
	}
	rec.Status = status
	return nil
}

func (r *MemoryDatabaseRepository) DeleteDatabase(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return domain.NotFoundf("database %s", id)
	}
	delete(r.records, id)
	return nil
}

// maxMemoryLogRecords bounds the in-memory mutation log.
const maxMemoryLogRecords = 10000

// MemoryMutationLogRepository keeps the most recent mutation log entries in
// memory, newest first.
type MemoryMutationLogRepository struct {
	mu      sync.Mutex
	records []port.MutationLogRecord
}

// NewMemoryMutationLogRepository creates an empty in-memory mutation log.
func NewMemoryMutationLogRepository() *MemoryMutationLogRepository {
	return &MemoryMutationLogRepository{}
}

func (r *MemoryMutationLogRepository) InsertBatch(_ context.Context, entries []port.MutationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		rec := port.MutationLogRecord{
			ID:         uuid.New(),
			DatabaseID: e.DatabaseID,
			TableName:  e.TableName,
			Operation:  e.Operation,
			Detail:     e.Detail,
			DurationMs: e.DurationMs,
			IsError:    e.IsError,
			CreatedAt:  time.Now(),
		}
		r.records = append([]port.MutationLogRecord{rec}, r.records...)
	}
	if len(r.records) > maxMemoryLogRecords {
		r.records = r.records[:maxMemoryLogRecords]
	}
	return nil
}

func (r *MemoryMutationLogRepository) ListMutationLogs(_ context.Context, databaseID *uuid.UUID, limit int) ([]port.MutationLogRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]port.MutationLogRecord, 0, limit)
	for _, rec := range r.records {
		if databaseID != nil && rec.DatabaseID != *databaseID {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// StaticKeyRepository rejects key management in static mode. Keys live in
// the environment and are not managed over the API.
type StaticKeyRepository struct{}

func (StaticKeyRepository) CreateAPIKey(_ context.Context, _, _, _ string, _ *uuid.UUID) (*port.APIKeyRecord, error) {
	return nil, domain.ValidationFailedf("api keys are managed via STATIC_API_KEYS in static mode")
}

func (StaticKeyRepository) GetAPIKeyByHash(_ context.Context, _ string) (*port.APIKeyRecord, error) {
	return nil, domain.NotFoundf("api key")
}

func (StaticKeyRepository) ListAPIKeys(_ context.Context) ([]port.APIKeyRecord, error) {
	return []port.APIKeyRecord{}, nil
}

func (StaticKeyRepository) RevokeAPIKey(_ context.Context, _ uuid.UUID) error {
	return domain.ValidationFailedf("api keys are managed via STATIC_API_KEYS in static mode")
}

func (StaticKeyRepository) TouchAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error {
	return nil
}
