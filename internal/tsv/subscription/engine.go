package subscription

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/tsv/internal/tsv/cache"
	"github.com/kolkov/tsv/internal/tsv/tsverr"
	"github.com/kolkov/tsv/internal/tsv/wrapper"
)

// node is one link in the subscription chain. It exists as a distinct type
// from wrapper.Wrapper so the hazard table protects "a position in the
// chain" rather than "a value", keeping the two concerns (publication order
// vs. refcounted destruction) separate.
type node[T any] struct {
	w *wrapper.Wrapper[T]
}

// Engine implements the subscription-slots reclamation algorithm for one
// TSV: readers publish a hazard pointer at the current head before
// dereferencing it; writers retire the previous head and reclaim it once
// no hazard slot still points at it.
type Engine[T any] struct {
	head    atomic.Pointer[node[T]]
	version atomic.Uint64 // 0 until the first Set; mirrors head's version

	hazards *Table[node[T]]

	writerMu sync.Mutex
	limbo    []*node[T] // retired nodes awaiting a hazard-free window

	destroy func(*T)
}

// New returns an empty engine.
func New[T any](destroy func(*T)) *Engine[T] {
	return &Engine[T]{hazards: NewTable[node[T]](), destroy: destroy}
}

// Get implements the base spec §4.3 reader algorithm.
func (e *Engine[T]) Get(store *cache.Store[T]) (*T, uint64) {
	if cur := store.Current(); cur != nil {
		if v := e.version.Load(); v > 0 && cur.Version == v {
			return cur.Value, cur.Version
		}
	}

	if e.version.Load() == 0 {
		return nil, 0
	}

	h := e.hazards.Acquire()
	defer h.Release()

	var n *node[T]
	for {
		n = e.head.Load()
		if n == nil {
			return nil, 0
		}
		h.Publish(n)
		// Revalidate: a writer may have retired n between our load and our
		// publish. If head moved on, n might already be past the GC pass
		// that checks this exact hazard slot — loop and try the new head.
		if e.head.Load() == n {
			break
		}
	}

	w := n.w
	w.Acquire()

	store.Adopt(w)
	return w.Value, w.Version
}

// Set implements the base spec §4.3 writer algorithm: install a new head,
// retire the old one, and reclaim whatever in limbo is no longer
// hazard-protected.
func (e *Engine[T]) Set(value *T, store *cache.Store[T]) (uint64, error) {
	if value == nil {
		return 0, tsverr.New("tsv.Set", tsverr.Invalid)
	}

	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	version := e.version.Load() + 1

	w := wrapper.New(value, version, e.destroy)
	w.Acquire() // the chain's own reference

	neu := &node[T]{w: w}
	old := e.head.Swap(neu)
	e.version.Store(version)

	if old != nil {
		e.limbo = append(e.limbo, old)
	}
	e.reclaim()

	store.NoteWrite()
	return version, nil
}

// reclaim drops every limbo node no longer protected by a hazard slot,
// releasing its wrapper reference. Nodes still protected stay in limbo for
// the next Set's pass. Called with writerMu held.
func (e *Engine[T]) reclaim() {
	kept := e.limbo[:0]
	for _, n := range e.limbo {
		if e.hazards.Protected(n) {
			kept = append(kept, n)
			continue
		}
		n.w.Release()
	}
	e.limbo = kept
}

// Version returns the most recently published version, or 0 if none has
// ever been set.
func (e *Engine[T]) Version() uint64 {
	return e.version.Load()
}

// Teardown releases the engine's own structural references: the current
// head and every node still in limbo. It assumes the caller has already
// ensured no reader can still be in flight (the same precondition the base
// spec places on Destroy), so it does not consult the hazard table.
func (e *Engine[T]) Teardown() {
	if n := e.head.Swap(nil); n != nil {
		n.w.Release()
	}
	for _, n := range e.limbo {
		n.w.Release()
	}
	e.limbo = nil
}
