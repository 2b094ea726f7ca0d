package xtxn_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/omeyang/xguard/pkg/resilience/xtxn"
)

func ExampleManager_Run() {
	tracker := xtxn.NewMemoryTracker()
	tracker.Set("plan", "basic")

	manager, err := xtxn.NewManager(xtxn.WithTracker(tracker))
	if err != nil {
		panic(err)
	}
	ctx := context.Background()

	// 出错自动回滚
	_ = manager.Run(ctx, func(ctx context.Context, txn xtxn.Transaction) error {
		tracker.Set("plan", "enterprise")
		return errors.New("payment declined")
	})

	plan, _ := tracker.Get("plan")
	fmt.Println(plan)
	// Output: basic
}

func ExampleManager_Rollback() {
	tracker := xtxn.NewMemoryTracker()
	tracker.Set("count", 10)

	manager, err := xtxn.NewManager(xtxn.WithTracker(tracker))
	if err != nil {
		panic(err)
	}
	ctx := context.Background()

	txn, err := manager.Begin(ctx)
	if err != nil {
		panic(err)
	}

	tracker.Set("count", -1)
	if _, err := manager.Rollback(ctx, txn.ID); err != nil {
		panic(err)
	}

	count, _ := tracker.Get("count")
	fmt.Println(count)

	entries, _ := manager.History(ctx, txn.ID)
	for _, e := range entries {
		fmt.Println(e.Type)
	}
	// Output:
	// 10
	// BEGIN
	// ROLLBACK
}
