package tsv_test

import (
	"fmt"

	"github.com/kolkov/tsv/tsv"
)

// Example demonstrates basic publish/subscribe use of a Var.
func Example() {
	type Config struct {
		MaxConnections int
	}

	v := tsv.NewSlotPair[Config](nil)
	defer v.Destroy()

	v.Set(&Config{MaxConnections: 10})

	cfg, _, err := v.Get()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(cfg.MaxConnections)

	// Output:
	// 10
}

// Example_subscriptionSlots shows selecting the subscription-slots engine
// for workloads with an unbounded number of concurrent readers.
func Example_subscriptionSlots() {
	v := tsv.NewSubscriptionSlots[int](nil)
	defer v.Destroy()

	v.Set(intPtr(1))
	v.Set(intPtr(2))

	n, version, _ := v.Get()
	fmt.Println(*n, version)

	// Output:
	// 2 2
}

func intPtr(n int) *int { return &n }
