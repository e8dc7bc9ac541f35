package tsv

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/tsv/internal/tsv/cache"
	"github.com/kolkov/tsv/internal/tsv/slotpair"
	"github.com/kolkov/tsv/internal/tsv/subscription"
	"github.com/kolkov/tsv/internal/tsv/tsverr"
	"github.com/kolkov/tsv/internal/tsv/waiter"
)

// Algorithm selects which reclamation engine backs a Var.
type Algorithm int

const (
	// SlotPair recycles two fixed slots guarded by per-slot active-reader
	// counts. O(1) writes (one wrapper allocation each); a writer publishing a new
	// version blocks only until the slot it wants to recycle has no reader
	// still dereferencing it.
	SlotPair Algorithm = iota
	// SubscriptionSlots protects the published head value and the retired
	// values awaiting reclamation with a growable table of hazard pointers.
	// Scales to an unbounded number of
	// concurrent readers at the cost of a per-write GC pass over that
	// table.
	SubscriptionSlots
)

func (a Algorithm) String() string {
	switch a {
	case SlotPair:
		return "slot-pair"
	case SubscriptionSlots:
		return "subscription-slots"
	default:
		return "unknown"
	}
}

// Var is a thread-safe variable. The zero value is not ready to use — call
// Init (or use NewSlotPair / NewSubscriptionSlots) before any Get or Set.
type Var[T any] struct {
	initOnce sync.Once
	ready    atomic.Bool

	algorithm Algorithm
	slotEng   *slotpair.Engine[T]
	subEng    *subscription.Engine[T]

	store *cache.Store[T]
	wait  *waiter.Facility
}

// NewSlotPair returns a Var backed by the slot-pair engine. destroy, if
// non-nil, is called exactly once on each value after the last reference
// to it is released.
func NewSlotPair[T any](destroy func(*T)) *Var[T] {
	v := &Var[T]{}
	v.Init(SlotPair, destroy)
	return v
}

// NewSubscriptionSlots returns a Var backed by the subscription-slots
// engine. destroy, if non-nil, is called exactly once on each value after
// the last reference to it is released.
func NewSubscriptionSlots[T any](destroy func(*T)) *Var[T] {
	v := &Var[T]{}
	v.Init(SubscriptionSlots, destroy)
	return v
}

// Init prepares a zero-value Var for use. Safe to call concurrently;
// only the first call takes effect, matching sync.Once's semantics for a
// one-time setup on an otherwise zero-value type (e.g. sync.Pool's New).
func (v *Var[T]) Init(algorithm Algorithm, destroy func(*T)) {
	v.initOnce.Do(func() {
		v.algorithm = algorithm
		v.store = cache.NewStore[T]()
		v.wait = waiter.New()
		switch algorithm {
		case SubscriptionSlots:
			v.subEng = subscription.New(destroy)
		default:
			v.slotEng = slotpair.New(destroy)
		}
		v.ready.Store(true)
	})
}

// Get returns the most recently published value and its version, or
// (nil, 0, nil) if no value has ever been published. It returns an Invalid
// error only if the Var has never been initialized.
func (v *Var[T]) Get() (*T, uint64, error) {
	if !v.ready.Load() {
		return nil, 0, tsverr.New("tsv.Get", tsverr.Invalid)
	}

	var value *T
	var version uint64
	if v.subEng != nil {
		value, version = v.subEng.Get(v.store)
	} else {
		value, version = v.slotEng.Get(v.store)
	}
	return value, version, nil
}

// Set publishes value as a new version, visible to subsequent Gets as soon
// as Set returns. It never blocks on a reader still holding a prior
// version. value must not be nil.
func (v *Var[T]) Set(value *T) (uint64, error) {
	if !v.ready.Load() {
		return 0, tsverr.New("tsv.Set", tsverr.Invalid)
	}

	var version uint64
	var err error
	if v.subEng != nil {
		version, err = v.subEng.Set(value, v.store)
	} else {
		version, err = v.slotEng.Set(value, v.store)
	}
	if err != nil {
		return 0, err
	}
	v.wait.MarkPublished()
	return version, nil
}

// Wait blocks the calling goroutine until the Var holds its first
// published value, then returns. It returns immediately if a value is
// already present.
func (v *Var[T]) Wait() {
	v.wait.Wait(func() bool {
		value, _, err := v.Get()
		return err == nil && value != nil
	})
}

// Release drops the calling goroutine's cached reference to this Var's
// last-seen value, if any. Idempotent; safe to call even if the goroutine
// never called Get.
func (v *Var[T]) Release() {
	if v.store != nil {
		v.store.Release()
	}
}

// Destroy releases the Var's own structural references to the values it
// holds, running destroy on any whose refcount reaches zero as a result.
// Callers must ensure no concurrent Get or Set is in flight and should
// treat the Var as unusable afterward.
func (v *Var[T]) Destroy() {
	if !v.ready.Load() {
		return
	}
	v.store.Release()
	v.store.Sweep()
	if v.subEng != nil {
		v.subEng.Teardown()
	} else {
		v.slotEng.Teardown()
	}
}

// Version returns the most recently published version, or 0 if no value
// has ever been published.
func (v *Var[T]) Version() uint64 {
	if !v.ready.Load() {
		return 0
	}
	if v.subEng != nil {
		return v.subEng.Version()
	}
	return v.slotEng.Version()
}
