// Package syncer coalesces bursts of portfolio writes into a single
// follow-up action, typically a snapshot or a cache refresh.
package syncer

import (
	"sync"
	"time"
)

// Debouncer fires fn once the trigger stream has been quiet for the whole
// window. A trigger during the wait restarts the clock, so a burst of
// commits produces exactly one call.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	fn     func()
	timer  *time.Timer
}

func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Trigger schedules (or reschedules) the pending call.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fn)
}

// Stop cancels any pending call. Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
