package xtxn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xguard/pkg/util/xclock"
)

func TestMemoryLockMutualExclusion(t *testing.T) {
	clock := xclock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	locks := newMemoryLockManager(time.Minute, clock)
	ctx := context.Background()

	h1, err := locks.TryAcquire(ctx, "res-1")
	require.NoError(t, err)
	assert.Equal(t, "res-1", h1.ResourceID())
	assert.Equal(t, clock.Now(), h1.AcquiredAt())

	_, err = locks.TryAcquire(ctx, "res-1")
	require.ErrorIs(t, err, ErrResourceLocked)

	// 其他资源不受影响
	h2, err := locks.TryAcquire(ctx, "res-2")
	require.NoError(t, err)
	require.NoError(t, h2.Release(ctx))

	require.NoError(t, h1.Release(ctx))
	h3, err := locks.TryAcquire(ctx, "res-1")
	require.NoError(t, err)
	require.NoError(t, h3.Release(ctx))
}

func TestMemoryLockReleaseIsIdempotent(t *testing.T) {
	locks := newMemoryLockManager(time.Minute, xclock.NewFake(time.Now()))
	ctx := context.Background()

	h, err := locks.TryAcquire(ctx, "res")
	require.NoError(t, err)
	require.NoError(t, h.Release(ctx))
	require.NoError(t, h.Release(ctx))
}

func TestMemoryLockLeaseExpiry(t *testing.T) {
	clock := xclock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	locks := newMemoryLockManager(30*time.Second, clock)
	ctx := context.Background()

	h1, err := locks.TryAcquire(ctx, "res")
	require.NoError(t, err)

	clock.Advance(29 * time.Second)
	_, err = locks.TryAcquire(ctx, "res")
	require.ErrorIs(t, err, ErrResourceLocked)

	// 租约到期，锁可被回收
	clock.Advance(time.Second)
	h2, err := locks.TryAcquire(ctx, "res")
	require.NoError(t, err)

	// 过期持有者释放不影响新持有者
	require.NoError(t, h1.Release(ctx))
	_, err = locks.TryAcquire(ctx, "res")
	require.ErrorIs(t, err, ErrResourceLocked)

	require.NoError(t, h2.Release(ctx))
}

func TestMemoryLockSingleWinner(t *testing.T) {
	locks := newMemoryLockManager(time.Minute, xclock.NewFake(time.Now()))
	ctx := context.Background()

	var wins atomic.Int64
	var g errgroup.Group
	for range 32 {
		g.Go(func() error {
			h, err := locks.TryAcquire(ctx, "res")
			if err != nil {
				if errors.Is(err, ErrResourceLocked) {
					return nil
				}
				return err
			}
			wins.Add(1)
			_ = h
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), wins.Load())
}
