package recalc

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests replace it to control time.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// debouncer runs only the last callback triggered for a key within the window.
type debouncer struct {
	clock  Clock
	window time.Duration

	mu     sync.Mutex
	timers map[string]Timer
}

func newDebouncer(clock Clock, window time.Duration) *debouncer {
	return &debouncer{
		clock:  clock,
		window: window,
		timers: make(map[string]Timer),
	}
}

func (d *debouncer) trigger(key string, fn func()) {
	if d.window <= 0 {
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	var t Timer
	t = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := d.timers[key] == t
		if current {
			delete(d.timers, key)
		}
		d.mu.Unlock()

		if current {
			fn()
		}
	})
	d.timers[key] = t
}

func (d *debouncer) cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

func (d *debouncer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
