package core

import (
	"context"
	"fmt"
	"time"
)

// scheduleFlushLocked marks state dirty and (re)arms the debounce timer so a
// burst of mutations results in one save. Callers hold e.mu.
func (e *Engine) scheduleFlushLocked() {
	e.dirty = true
	if e.closed {
		return
	}
	if e.timer == nil {
		e.timer = time.AfterFunc(e.flushDelay, e.flushFromTimer)
		return
	}
	e.timer.Reset(e.flushDelay)
}

// flushFromTimer runs a debounced save unless the engine has been closed in
// the meantime. Close sets closed before taking flushMu, so a save that
// passes the check finishes before the driver is closed.
func (e *Engine) flushFromTimer() {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return
	}
	if err := e.flushLocked(context.Background()); err != nil {
		e.logger.Error("debounced flush failed", "error", err)
	}
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// CancelPendingFlush drops a debounced save that has not fired yet. The
// changes stay dirty and are written by the next Flush or Close.
func (e *Engine) CancelPendingFlush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
}

// Pending reports whether there are changes not yet saved.
func (e *Engine) Pending() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dirty
}

// Flush saves the current snapshot immediately, cancelling any pending
// debounced save, and then notifies subscribers. Without a workspace the
// save is skipped but subscribers are still notified.
func (e *Engine) Flush(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	return e.flushLocked(ctx)
}

// flushLocked performs the save. Callers hold e.flushMu.
func (e *Engine) flushLocked(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "flush", start, err) }()

	e.mu.Lock()
	e.stopTimerLocked()
	snapshot := e.snapshotLocked()
	e.dirty = false
	e.mu.Unlock()

	if e.HasWorkspace() {
		if err = e.persistence.Save(ctx, snapshot); err != nil {
			e.mu.Lock()
			e.dirty = true
			e.mu.Unlock()
			e.logger.Error("save snapshot", "error", err)
			return fmt.Errorf("save snapshot: %w", err)
		}
		e.logger.Debug("snapshot saved", "records", len(snapshot.Requirements))
	}

	if so, ok := e.metrics.(StateObserver); ok {
		suspect := 0
		for _, r := range snapshot.Requirements {
			suspect += len(r.SuspectLinkIDs)
		}
		so.ObserveState(len(snapshot.Requirements), suspect)
	}
	if co, ok := e.metrics.(CacheObserver); ok {
		co.ObserveCache(e.cache.Stats())
	}
	e.notify()
	return nil
}
