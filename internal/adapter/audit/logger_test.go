package audit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litecove/litecove/internal/core/port"
)

// --- mock MutationLogRepository ---

type mockAuditRepo struct {
	mu      sync.Mutex
	batches [][]port.MutationEntry
	err     error
}

func (m *mockAuditRepo) InsertBatch(_ context.Context, entries []port.MutationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := make([]port.MutationEntry, len(entries))
	copy(cp, entries)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *mockAuditRepo) ListMutationLogs(_ context.Context, _ *uuid.UUID, _ int) ([]port.MutationLogRecord, error) {
	return nil, nil
}

func (m *mockAuditRepo) totalEntries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEntry(operation string) port.MutationEntry {
	return port.MutationEntry{
		DatabaseID: uuid.New(),
		TableName:  "orders",
		Operation:  operation,
		DurationMs: 10,
	}
}

// --- tests ---

func TestBatchLogger_FlushOnClose(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewBatchLogger(repo, testLogger())

	l.Log(testEntry("add_column"))
	l.Log(testEntry("drop_column"))
	l.Close()

	assert.Equal(t, 2, repo.totalEntries())
}

func TestBatchLogger_FlushOnBatchSize(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewBatchLogger(repo, testLogger())
	defer l.Close()

	// Send exactly defaultBatchSize entries.
	for i := 0; i < defaultBatchSize; i++ {
		l.Log(testEntry("add_column"))
	}

	// Wait briefly for the flush to complete.
	require.Eventually(t, func() bool {
		return repo.totalEntries() >= defaultBatchSize
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBatchLogger_FlushOnTicker(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewBatchLogger(repo, testLogger())
	defer l.Close()

	l.Log(testEntry("add_foreign_key"))

	// Wait for the timer flush (defaultFlushTimeout = 5s, but should flush within that).
	require.Eventually(t, func() bool {
		return repo.totalEntries() > 0
	}, defaultFlushTimeout+time.Second, 100*time.Millisecond)
}

func TestBatchLogger_DropOnFullChannel(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewBatchLogger(repo, testLogger())
	// Don't defer Close — we want to test the non-blocking behavior.

	// Fill the channel.
	for i := 0; i < defaultChanBuffer+100; i++ {
		l.Log(testEntry("add_column"))
	}

	// No panic, no blocking — just some entries dropped.
	l.Close()

	// Should have flushed most entries (at least channel capacity).
	assert.GreaterOrEqual(t, repo.totalEntries(), defaultBatchSize)
}

func TestBatchLogger_LogRacingCloseDoesNotPanic(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewBatchLogger(repo, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Log(testEntry("add_column"))
			}
		}()
	}
	l.Close()
	wg.Wait()

	// Entries arriving after Close are dropped, not sent to a closed channel.
	l.Log(testEntry("drop_column"))
}

func TestBatchLogger_CloseTwice(t *testing.T) {
	l := NewBatchLogger(&mockAuditRepo{}, testLogger())
	l.Close()
	l.Close()
}
