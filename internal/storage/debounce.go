package storage

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Trigger calls into a single trailing
// invocation of fn.
type Debouncer struct {
	mu      sync.Mutex
	after   time.Duration
	fn      func()
	timer   *time.Timer
	pending bool
}

func NewDebouncer(after time.Duration, fn func()) *Debouncer {
	return &Debouncer{after: after, fn: fn}
}

// Trigger schedules fn to run once the quiet period elapses, restarting the
// clock if a call is already pending.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.after, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()
	d.fn()
}

// Flush runs a pending invocation immediately instead of waiting out the
// quiet period. No-op when nothing is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}

// Stop drops any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}
