// Package cache implements the Per-Thread Cache (base spec §2/§3/§4.1): for
// each (TSV, goroutine) pair, at most one wrapper is "held" on that
// goroutine's behalf, contributing one strong reference until it is
// transferred by the next Get, dropped by an explicit Release, or reclaimed
// by the liveness sweep once that goroutine has actually exited.
//
// This is a single component shared by both engines (base spec §2's
// component table lists it once, independent of which engine variant is
// active), keyed by goroutine id the same way the teacher's
// internal/race/api keys its per-goroutine RaceContext table — see
// goid.go and DESIGN.md for why that, rather than a literal TLS port, is
// the sound Go rendition of "thread-local destruction".
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/tsv/internal/tsv/wrapper"
)

// sweepInterval mirrors the teacher's allocCounter-gated cleanup pass
// ("every 1000 allocations, we scan for dead goroutines and reclaim TIDs"),
// generalized from TID reuse to cached-reference reclamation.
const sweepInterval = 1000

type entry[T any] struct {
	w atomic.Pointer[wrapper.Wrapper[T]]
}

// release drops the entry's reference, if any, returning whether one was
// dropped. Safe to race against another goroutine doing the same thing —
// atomic.Pointer.Swap ensures exactly one caller sees the non-nil value.
func (e *entry[T]) release() bool {
	old := e.w.Swap(nil)
	if old != nil {
		old.Release()
		return true
	}
	return false
}

// Store is the per-TSV table of per-goroutine cached references.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[int64]*entry[T]
	writes  atomic.Uint64
}

// NewStore returns an empty cache store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{entries: make(map[int64]*entry[T])}
}

func (s *Store[T]) entryFor(gid int64) *entry[T] {
	s.mu.RLock()
	e, ok := s.entries[gid]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	e, ok = s.entries[gid]
	if !ok {
		e = &entry[T]{}
		s.entries[gid] = e
	}
	s.mu.Unlock()
	return e
}

// Current returns the calling goroutine's cached wrapper, or nil if it has
// none cached.
func (s *Store[T]) Current() *wrapper.Wrapper[T] {
	return s.entryFor(goroutineID()).w.Load()
}

// Adopt transfers the calling goroutine's cached reference to neu, releasing
// whatever was previously cached. The caller must already hold a reference
// on neu (e.g. via Acquire) that Adopt takes ownership of.
func (s *Store[T]) Adopt(neu *wrapper.Wrapper[T]) {
	old := s.entryFor(goroutineID()).w.Swap(neu)
	if old != nil {
		old.Release()
	}
}

// Release drops the calling goroutine's cached reference, if any. Idempotent
// (base spec §8 property 5).
func (s *Store[T]) Release() {
	s.entryFor(goroutineID()).release()
}

// NoteWrite is called by a writer after every successful Set. Every
// sweepInterval-th call triggers a liveness sweep (see Sweep) so that
// goroutines which exited without calling Release don't pin their last
// wrapper forever.
func (s *Store[T]) NoteWrite() {
	if s.writes.Add(1)%sweepInterval == 0 {
		s.Sweep()
	}
}

// Sweep releases every cached reference belonging to a goroutine that is no
// longer running, determined by parsing a full runtime.Stack dump. It never
// touches entries belonging to still-live goroutines, even ones that have
// gone idle — only Release, the next differing Get, or this sweep finding
// them genuinely gone reclaims those.
//
// Destroy calls this once on its way out, in addition to releasing its own
// caller's entry; any goroutine that exits after Destroy has run with an
// outstanding cached reference leaks that reference for the life of the
// process, since nothing drives a further sweep once the TSV is gone. See
// DESIGN.md — Go has no goroutine-exit hook to close that window.
func (s *Store[T]) Sweep() {
	live := liveGoroutineIDs()

	s.mu.Lock()
	var dead []*entry[T]
	for gid, e := range s.entries {
		if _, ok := live[gid]; !ok {
			dead = append(dead, e)
			delete(s.entries, gid)
		}
	}
	s.mu.Unlock()

	for _, e := range dead {
		e.release()
	}
}
