// Package audit persists schema mutation entries without blocking the
// mutation path.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/litecove/litecove/internal/core/port"
)

const (
	defaultBatchSize    = 50
	defaultFlushTimeout = 5 * time.Second
	defaultChanBuffer   = 1000
)

// BatchLogger implements port.MutationAuditor using a buffered channel and
// a background goroutine that batch-inserts entries into the store.
type BatchLogger struct {
	repo   port.MutationLogRepository
	ch     chan port.MutationEntry
	done   chan struct{}
	logger *slog.Logger

	// mu orders Log sends against Close: the channel is only closed while no
	// sender holds the lock, so a send can never hit a closed channel.
	mu     sync.Mutex
	closed bool
}

// NewBatchLogger creates a BatchLogger that writes mutation entries to the
// given repository in batches. The background goroutine flushes when the
// batch is full or the flush interval elapses, whichever comes first.
func NewBatchLogger(repo port.MutationLogRepository, logger *slog.Logger) *BatchLogger {
	l := &BatchLogger{
		repo:   repo,
		ch:     make(chan port.MutationEntry, defaultChanBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l
}

// Log enqueues a mutation entry. Non-blocking; drops the entry if the
// channel is full (backpressure safety) or the logger is already closed.
func (l *BatchLogger) Log(entry port.MutationEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.logger.Warn("mutation logger closed, dropping entry",
			slog.String("operation", entry.Operation),
			slog.String("table", entry.TableName),
		)
		return
	}
	select {
	case l.ch <- entry:
	default:
		l.logger.Warn("mutation log channel full, dropping entry",
			slog.String("operation", entry.Operation),
			slog.String("table", entry.TableName),
		)
	}
}

// Close signals the background goroutine to flush and exit.
// Blocks until all remaining entries are flushed. Safe to call twice.
func (l *BatchLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.mu.Unlock()

	close(l.ch)
	<-l.done
}

func (l *BatchLogger) run() {
	defer close(l.done)

	batch := make([]port.MutationEntry, 0, defaultBatchSize)
	ticker := time.NewTicker(defaultFlushTimeout)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-l.ch:
			if !ok {
				// Channel closed, flush remaining and exit.
				if len(batch) > 0 {
					l.flush(batch)
				}
				return
			}
			batch = append(batch, entry)
			if len(batch) >= defaultBatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *BatchLogger) flush(batch []port.MutationEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := l.repo.InsertBatch(ctx, batch); err != nil {
		l.logger.Error("failed to flush mutation log batch",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
	}
}
