package feed

import (
	"context"
	"sync"
	"time"

	"w3feed/internal/storage"
	logx "w3feed/pkg/logx"
)

// DateLayout is the calendar-date form used by the gate and the run audit.
const DateLayout = "2006-01-02"

// Gate enforces at most one successful publish per calendar day.
//
// State is in-memory; when a store is attached the last publish date is
// restored at startup and persisted on completion, so the gate survives
// restarts. Without a store, a restart may allow a duplicate publish for the
// same day (accepted limitation).
type Gate struct {
	mu       sync.Mutex
	lastDate string

	store storage.Store
	log   logx.Logger
}

// NewGate builds the gate and restores the persisted date, if any.
func NewGate(ctx context.Context, store storage.Store, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	g := &Gate{store: store, log: log}
	if store != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if date, ok, err := store.LastRunDate(cctx); err != nil {
			log.Warn("last run date restore failed", logx.Err(err))
		} else if ok {
			g.lastDate = date
			log.Info("last run date restored", logx.String("date", date))
		}
	}
	return g
}

// TryBegin reports whether a run for today may proceed. It does not reserve
// the day; the publisher serializes runs and calls MarkComplete only after
// every delivery has been attempted.
func (g *Gate) TryBegin(today string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastDate != today
}

// MarkComplete records today as published. Call it only after all deliveries
// for the run finished (success or definitively-handled failure); a crash
// before this point leaves the gate unset so a retrigger is not skipped.
func (g *Gate) MarkComplete(ctx context.Context, today string) {
	g.mu.Lock()
	g.lastDate = today
	store := g.store
	g.mu.Unlock()

	if store != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := store.SetLastRunDate(cctx, today); err != nil {
			g.log.Warn("last run date persist failed", logx.Err(err))
		}
	}
}
