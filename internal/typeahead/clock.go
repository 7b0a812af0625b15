package typeahead

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// query is resolved.
const DefaultDebounce = 300 * time.Millisecond

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock schedules on the runtime timer.
type RealClock struct{}

// AfterFunc implements Clock.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer keeps at most one armed timer. Each Trigger replaces the
// previous timer; only the callback of the latest Trigger can run.
type Debouncer struct {
	clock  Clock
	window time.Duration

	mu    sync.Mutex
	timer Timer
	gen   uint64 // Bumped on every Trigger/Stop; a firing timer must match it
}

// NewDebouncer creates a Debouncer. A nil clock means RealClock and a
// non-positive window means DefaultDebounce.
func NewDebouncer(clock Clock, window time.Duration) *Debouncer {
	if clock == nil {
		clock = RealClock{}
	}
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{clock: clock, window: window}
}

// Trigger cancels any pending callback and schedules fn after the window.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		if gen != d.gen {
			// Superseded after the runtime already started this callback.
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Stop cancels the pending callback, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Pending reports whether a callback is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Window returns the quiescence window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
