package dispatch

import (
	"sync"
	"time"
)

// timerRegistry keeps one deadline timer per pending request and tracks the
// goroutines the engine starts so Close can wait for them.
type timerRegistry struct {
	clock Clock

	mu     sync.Mutex
	byID   map[string]Timer
	closed bool
	wg     sync.WaitGroup
}

func newTimerRegistry(clock Clock) *timerRegistry {
	return &timerRegistry{clock: clock, byID: make(map[string]Timer)}
}

// arm schedules fire(id) after d, replacing any timer already armed for id
func (r *timerRegistry) arm(id string, d time.Duration, fire func(id string)) {
	if d < 0 {
		d = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if old, ok := r.byID[id]; ok {
		old.Stop()
	}
	var t Timer
	t = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		if r.closed || r.byID[id] != t {
			r.mu.Unlock()
			return
		}
		delete(r.byID, id)
		r.wg.Add(1)
		r.mu.Unlock()

		defer r.wg.Done()
		fire(id)
	})
	r.byID[id] = t
}

// cancel stops the timer for id if one is armed. A timer that already fired
// is not affected.
func (r *timerRegistry) cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byID[id]; ok {
		t.Stop()
		delete(r.byID, id)
	}
}

func (r *timerRegistry) armed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok
}

// spawn runs f on its own goroutine unless the registry is closed
func (r *timerRegistry) spawn(f func()) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		f()
	}()
	return true
}

// close stops every timer and waits for running callbacks and spawned work
func (r *timerRegistry) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.wg.Wait()
		return
	}
	r.closed = true
	for id, t := range r.byID {
		t.Stop()
		delete(r.byID, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
