package slotpair

import (
	"sync"
	"testing"
	"time"

	"github.com/kolkov/tsv/internal/tsv/cache"
)

func TestGetBeforeAnySetReturnsNilValue(t *testing.T) {
	e := New[int](nil)
	store := cache.NewStore[int]()

	value, version := e.Get(store)
	if value != nil || version != 0 {
		t.Fatalf("Get() = (%v, %d), want (nil, 0)", value, version)
	}
}

func TestSetThenGetSeesValue(t *testing.T) {
	e := New[int](nil)
	store := cache.NewStore[int]()

	v := 42
	version, err := e.Set(&v, store)
	if err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if version != 1 {
		t.Fatalf("Set() version = %d, want 1", version)
	}

	got, gotVersion := e.Get(store)
	if got == nil || *got != 42 {
		t.Fatalf("Get() value = %v, want 42", got)
	}
	if gotVersion != 1 {
		t.Fatalf("Get() version = %d, want 1", gotVersion)
	}
}

func TestSetNilIsInvalid(t *testing.T) {
	e := New[int](nil)
	store := cache.NewStore[int]()
	if _, err := e.Set(nil, store); err == nil {
		t.Fatal("Set(nil) returned no error")
	}
}

func TestSequentialSetsIncrementVersion(t *testing.T) {
	e := New[int](nil)
	store := cache.NewStore[int]()

	for i := 1; i <= 5; i++ {
		v := i
		version, err := e.Set(&v, store)
		if err != nil {
			t.Fatalf("Set(%d) error: %v", i, err)
		}
		if version != uint64(i) {
			t.Fatalf("Set(%d) version = %d, want %d", i, version, i)
		}
	}

	if got := e.Version(); got != 5 {
		t.Fatalf("Version() = %d, want 5", got)
	}
}

// TestDestroyRunsOnceAfterLastVersionSuperseded verifies a value's
// destructor fires exactly once, only after it has been fully superseded
// and every cached reference to it has been dropped.
func TestDestroyRunsOnceAfterLastVersionSuperseded(t *testing.T) {
	destroyed := make(chan int, 10)
	e := New[int](func(v *int) { destroyed <- *v })

	store := cache.NewStore[int]()
	for i := 1; i <= 3; i++ {
		v := i
		if _, err := e.Set(&v, store); err != nil {
			t.Fatalf("Set(%d) error: %v", i, err)
		}
		// Drop the cache's own reference so old values aren't artificially
		// kept alive by the single-goroutine cache used in this test.
		store.Release()
	}

	e.Teardown()

	seen := map[int]int{}
	close(destroyed)
	for v := range destroyed {
		seen[v]++
	}
	for v, n := range seen {
		if n != 1 {
			t.Errorf("value %d destroyed %d times, want 1", v, n)
		}
	}
}

// TestConcurrentReadersAndWriter soaks the engine with concurrent readers
// racing a writer publishing a steady stream of versions, verifying no
// reader ever observes a version going backwards and nothing panics (which
// would indicate a use-after-free or torn read).
func TestConcurrentReadersAndWriter(t *testing.T) {
	e := New[int](nil)
	writerStore := cache.NewStore[int]()

	const writes = 500
	done := make(chan struct{})
	var wg sync.WaitGroup

	const readers = 8
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			store := cache.NewStore[int]()
			var last uint64
			for {
				select {
				case <-done:
					return
				default:
				}
				value, version := e.Get(store)
				if value != nil && version < last {
					t.Errorf("observed version %d after %d", version, last)
				}
				if value != nil {
					last = version
				}
			}
		}()
	}

	for i := 1; i <= writes; i++ {
		v := i
		if _, err := e.Set(&v, writerStore); err != nil {
			t.Fatalf("Set(%d) error: %v", i, err)
		}
	}
	close(done)
	wg.Wait()
}

// TestWriterDoesNotBlockOnIdleReader verifies a writer publishing two
// versions in a row completes promptly even while another goroutine holds
// a cached reference to the first version (but is not mid-Get).
func TestWriterDoesNotBlockOnIdleReader(t *testing.T) {
	e := New[int](nil)
	readerStore := cache.NewStore[int]()
	writerStore := cache.NewStore[int]()

	v1 := 1
	if _, err := e.Set(&v1, writerStore); err != nil {
		t.Fatal(err)
	}
	e.Get(readerStore) // reader caches version 1, then goes idle

	done := make(chan error, 1)
	go func() {
		v2 := 2
		_, err := e.Set(&v2, writerStore)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("writer blocked on an idle reader's cached reference")
	}
}
