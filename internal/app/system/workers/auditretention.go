// internal/app/system/workers/auditretention.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/mercatohq/mercato/internal/app/store/audit"
	"go.uber.org/zap"
)

// AuditRetention is a background worker that purges audit events whose
// retention window has passed. Each event carries its own purge_after
// deadline, so the sweep is a single range delete.
type AuditRetention struct {
	events   *audit.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewAuditRetention creates a new audit retention worker.
//
// Parameters:
//   - events: the audit event store
//   - logger: zap logger for logging
//   - interval: how often to run the purge (e.g., 24 hours)
func NewAuditRetention(events *audit.Store, logger *zap.Logger, interval time.Duration) *AuditRetention {
	return &AuditRetention{
		events:   events,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background purge loop.
func (w *AuditRetention) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("audit retention worker started",
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *AuditRetention) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("audit retention worker stopped")
}

func (w *AuditRetention) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.purge()
		}
	}
}

func (w *AuditRetention) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.events.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		w.log.Error("failed to purge expired audit events", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("purged expired audit events", zap.Int64("count", count))
	}
}
