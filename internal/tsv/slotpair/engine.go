// Package slotpair implements the Slot-Pair Engine (base spec §4.2): two
// fixed slots, a monotonic version counter, and per-slot active-reader
// counts that let a writer safely recycle the non-current slot without ever
// blocking a reader already in flight.
//
// Slots are indexed 0/1 rather than holding a pointer to their sibling, per
// the base spec's §9 "Cyclic slot references" note — lookups are `idx ^ 1`.
package slotpair

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/tsv/internal/tsv/cache"
	"github.com/kolkov/tsv/internal/tsv/tsverr"
	"github.com/kolkov/tsv/internal/tsv/wrapper"
)

type slot[T any] struct {
	wrapperPtr    atomic.Pointer[wrapper.Wrapper[T]]
	activeReaders atomic.Int32
}

// Engine implements the slot-pair reclamation algorithm for one TSV.
type Engine[T any] struct {
	slots       [2]slot[T]
	nextVersion atomic.Uint64 // latest published version; 0 means never set

	writerMu sync.Mutex // serializes writers against each other

	waitMu   sync.Mutex
	waitCond *sync.Cond // writers block here until their target slot quiesces

	destroy func(*T)
}

// New returns an empty engine (version reads as 0 until the first Set).
func New[T any](destroy func(*T)) *Engine[T] {
	e := &Engine[T]{destroy: destroy}
	e.waitCond = sync.NewCond(&e.waitMu)
	return e
}

// Get implements the base spec §4.2 reader algorithm. store is the shared
// Per-Thread Cache (base spec §2) this TSV uses for its fast path and for
// transferring the calling goroutine's held reference.
func (e *Engine[T]) Get(store *cache.Store[T]) (*T, uint64) {
	// Step 1: fast path — the calling goroutine's cached wrapper already
	// reflects the current version. Finding that wrapper takes the cache
	// store's read lock and a goroutine-id lookup; beyond that, only the
	// version is loaded and no slot is touched.
	if cur := store.Current(); cur != nil {
		if nv := e.nextVersion.Load(); nv > 0 && cur.Version == nv {
			return cur.Value, cur.Version
		}
	}

	nv := e.nextVersion.Load() // step 2
	if nv == 0 {
		return nil, 0
	}

	idx := int((nv - 1) & 1)
	pinned := &e.slots[idx]
	pinned.activeReaders.Add(1) // step 3

	if e.nextVersion.Load() != nv {
		// Steps 4-5: a writer raced ahead between our load and our pin.
		// Pin the sibling before releasing the original pin, so there is
		// never an instant where neither slot is protected.
		other := &e.slots[idx^1]
		other.activeReaders.Add(1)
		e.release(pinned)
		pinned = other

		nv = e.nextVersion.Load()
		idx = int((nv - 1) & 1)
		// With only two slots, whichever slot nv now names is either
		// `pinned` itself or pinned's sibling — and the sibling can only
		// be overwritten again once a writer clears `pinned`, which this
		// reader is holding. So reading below is safe even when it names
		// the slot we just released.
	}

	read := &e.slots[idx]
	w := read.wrapperPtr.Load() // step 6
	if w != nil {
		w.Acquire()
	}

	e.release(pinned) // step 7

	if w == nil {
		return nil, 0
	}

	store.Adopt(w) // step 8
	return w.Value, w.Version
}

// release drops a slot's reader pin and, if this was the last one, wakes
// any writer waiting on it. Using the post-decrement value (rather than a
// separate Load) ensures exactly one releaser observes the transition to
// zero, so the subsequent lock+Signal can't race a writer's own
// lock-check-wait sequence into a missed wakeup.
func (e *Engine[T]) release(s *slot[T]) {
	if s.activeReaders.Add(-1) == 0 {
		e.waitMu.Lock()
		e.waitCond.Signal()
		e.waitMu.Unlock()
	}
}

// Set implements the base spec §4.2 writer algorithm, publishing value as a
// new version. Writers are serialized against each other by writerMu but
// never block a reader.
func (e *Engine[T]) Set(value *T, store *cache.Store[T]) (uint64, error) {
	if value == nil {
		return 0, tsverr.New("tsv.Set", tsverr.Invalid)
	}

	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	nv := e.nextVersion.Load()

	if nv == 0 {
		// Bootstrap: both slots start empty, so the first publish installs
		// the same wrapper in both and each slot contributes its own
		// strong reference.
		w := wrapper.New(value, 1, e.destroy)
		w.Acquire()
		w.Acquire()
		e.slots[0].wrapperPtr.Store(w)
		e.slots[1].wrapperPtr.Store(w)
		e.nextVersion.Store(1)
		store.NoteWrite()
		return 1, nil
	}

	version := nv + 1
	target := &e.slots[nv&1]

	e.waitMu.Lock()
	for target.activeReaders.Load() != 0 {
		e.waitCond.Wait()
	}
	e.waitMu.Unlock()

	neu := wrapper.New(value, version, e.destroy)
	neu.Acquire() // the slot's own reference

	old := target.wrapperPtr.Swap(neu)
	e.nextVersion.Store(version)

	if old != nil {
		old.Release() // drop the slot's former reference
	}

	store.NoteWrite()
	return version, nil
}

// Version returns the most recently published version, or 0 if none has
// ever been set.
func (e *Engine[T]) Version() uint64 {
	return e.nextVersion.Load()
}

// Teardown releases the engine's own structural references (the two
// slots), for use by the TSV's Destroy. It does not touch any goroutine's
// cached reference — that is the cache.Store's responsibility.
func (e *Engine[T]) Teardown() {
	for i := range e.slots {
		if w := e.slots[i].wrapperPtr.Swap(nil); w != nil {
			w.Release()
		}
	}
}
