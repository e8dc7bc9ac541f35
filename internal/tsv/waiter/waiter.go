// Package waiter implements the Waiter Facility (base spec §4.4): a condvar
// on which goroutines block until a TSV holds its first value, woken one at
// a time in a chain rather than as a thundering herd.
package waiter

import "sync"

// Facility blocks callers until Signal has been called at least once, then
// wakes waiters one at a time: each woken goroutine re-checks the published
// condition and, if it holds, propagates a single further Signal before
// returning — so a herd of N waiters drains via N sequential wakeups
// instead of one broadcast storm.
type Facility struct {
	mu        sync.Mutex
	cond      *sync.Cond
	published bool
}

// New returns a ready-to-use Facility.
func New() *Facility {
	f := &Facility{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// MarkPublished records that a value now exists and wakes one waiter (not a
// broadcast — see the package doc and base spec §4.4/§4.3 "Wake semantics").
// Safe to call every time a writer publishes; only the first call after a
// quiescent period actually has waiters to wake, but repeated calls are
// harmless (Signal on a condvar with no waiters is a no-op).
func (f *Facility) MarkPublished() {
	f.mu.Lock()
	f.published = true
	f.mu.Unlock()
	f.cond.Signal()
}

// Wait blocks until MarkPublished has been called at least once (returning
// immediately if it already has), then re-signals so the next waiter in the
// chain wakes.
//
// ready is called with the facility's lock released; it should perform the
// caller's own "has a value been published" check (typically a Get) and
// report whether it observed one.
func (f *Facility) Wait(ready func() bool) {
	if ready() {
		return
	}
	f.mu.Lock()
	for !f.published {
		f.cond.Wait()
	}
	f.mu.Unlock()

	// Chain-wake: hand the signal to the next waiter in line before
	// returning, rather than letting every waiter rely on the writer's
	// single Signal (base spec §4.4: "On exit, signal the next waiter").
	f.cond.Signal()
}
