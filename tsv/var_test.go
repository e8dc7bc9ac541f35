package tsv

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestZeroValueBeforeInitReturnsInvalid(t *testing.T) {
	var v Var[int]
	_, _, err := v.Get()
	if err == nil {
		t.Fatal("Get() on an uninitialized Var returned no error")
	}
	var tsvErr *Error
	if !errors.As(err, &tsvErr) || tsvErr.Code != ErrInvalid {
		t.Fatalf("Get() error = %v, want Invalid", err)
	}
}

func TestGetBeforeAnySetReturnsNilNoError(t *testing.T) {
	v := NewSlotPair[int](nil)
	value, version, err := v.Get()
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if value != nil {
		t.Fatalf("Get() value = %v, want nil", value)
	}
	if version != 0 {
		t.Fatalf("Get() version = %d, want 0", version)
	}
}

func TestSetThenGetBothAlgorithms(t *testing.T) {
	for _, alg := range []Algorithm{SlotPair, SubscriptionSlots} {
		t.Run(alg.String(), func(t *testing.T) {
			var v Var[string]
			v.Init(alg, nil)

			s := "hello"
			version, err := v.Set(&s)
			if err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			if version != 1 {
				t.Fatalf("Set() version = %d, want 1", version)
			}

			got, gotVersion, err := v.Get()
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got == nil || *got != "hello" {
				t.Fatalf("Get() value = %v, want hello", got)
			}
			if gotVersion != 1 {
				t.Fatalf("Get() version = %d, want 1", gotVersion)
			}
		})
	}
}

func TestInitOnlyTakesEffectOnce(t *testing.T) {
	var v Var[int]
	v.Init(SlotPair, nil)
	v.Init(SubscriptionSlots, nil) // must be ignored

	if v.algorithm != SlotPair {
		t.Fatalf("algorithm = %v, want SlotPair (second Init should be a no-op)", v.algorithm)
	}
}

func TestWaitUnblocksOnFirstSet(t *testing.T) {
	v := NewSlotPair[int](nil)

	done := make(chan struct{})
	go func() {
		v.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before any Set")
	case <-time.After(30 * time.Millisecond):
	}

	n := 1
	if _, err := v.Set(&n); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Set")
	}
}

func TestReleaseDropsCachedReferenceWithoutError(t *testing.T) {
	v := NewSlotPair[int](nil)
	v.Release() // never called Get; must be a harmless no-op

	n := 1
	if _, err := v.Set(&n); err != nil {
		t.Fatal(err)
	}
	if _, _, err := v.Get(); err != nil {
		t.Fatal(err)
	}
	v.Release()
	v.Release()
}

func TestDestroyRunsDestructorsForUnreferencedValues(t *testing.T) {
	destroyed := make(chan int, 10)
	v := NewSlotPair[int](func(n *int) { destroyed <- *n })

	n := 1
	if _, err := v.Set(&n); err != nil {
		t.Fatal(err)
	}
	v.Destroy()

	select {
	case got := <-destroyed:
		if got != 1 {
			t.Fatalf("destroyed value = %d, want 1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("destroy never ran for the Var's last value")
	}
}

func TestConcurrentGetSetAcrossGoroutines(t *testing.T) {
	v := NewSubscriptionSlots[int](nil)
	const writers = 4
	const writes = 100

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				n := i
				if _, err := v.Set(&n); err != nil {
					t.Errorf("Set() error: %v", err)
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			v.Get()
		}
	}()

	wg.Wait()
	close(done)
}
