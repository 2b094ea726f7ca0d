package xcircuit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xguard/pkg/util/xclock"
)

func newRedisClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRedisStoreNilClient(t *testing.T) {
	_, err := NewRedisStateStore(nil)
	assert.ErrorIs(t, err, ErrNilRedisClient)

	_, err = NewRedisMetrics(nil)
	assert.ErrorIs(t, err, ErrNilRedisClient)
}

func TestRedisStateStoreRoundTrip(t *testing.T) {
	store, err := NewRedisStateStore(newRedisClient(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)

	open := State{Status: StatusOpen, LastChange: time.Unix(1000, 42)}
	ok, err := store.CompareAndSwap(ctx, "k", State{}, open)
	require.NoError(t, err)
	assert.True(t, ok)

	got, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, got.Equal(open), "nanosecond precision must survive the round trip")
}

func TestRedisStateStoreCAS(t *testing.T) {
	store, err := NewRedisStateStore(newRedisClient(t))
	require.NoError(t, err)
	ctx := context.Background()

	open := State{Status: StatusOpen, LastChange: time.Unix(1000, 0)}
	half := State{Status: StatusHalfOpen, LastChange: time.Unix(1060, 0)}

	ok, err := store.CompareAndSwap(ctx, "k", State{}, open)
	require.NoError(t, err)
	require.True(t, ok)

	// old 不匹配：拒绝
	ok, err = store.CompareAndSwap(ctx, "k", half, State{Status: StatusClosed})
	require.NoError(t, err)
	assert.False(t, ok)

	// old 匹配：OPEN → HALF_OPEN
	ok, err = store.CompareAndSwap(ctx, "k", open, half)
	require.NoError(t, err)
	assert.True(t, ok)

	// 同一转换第二次 CAS 失败（探测资格只有一个）
	ok, err = store.CompareAndSwap(ctx, "k", open, half)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStateStoreDelete(t *testing.T) {
	store, err := NewRedisStateStore(newRedisClient(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.CompareAndSwap(ctx, "k", State{}, State{Status: StatusOpen, LastChange: time.Unix(1, 0)})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisMetrics(t *testing.T) {
	m, err := NewRedisMetrics(newRedisClient(t))
	require.NoError(t, err)
	ctx := context.Background()

	counts, err := m.Counts(ctx, "absent")
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)

	require.NoError(t, m.Attempt(ctx, "k"))
	require.NoError(t, m.Attempt(ctx, "k"))
	require.NoError(t, m.Success(ctx, "k"))
	require.NoError(t, m.Failure(ctx, "k"))

	counts, err = m.Counts(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, Counts{Attempts: 2, Successes: 1, Failures: 1}, counts)

	require.NoError(t, m.Reset(ctx, "k"))
	counts, err = m.Counts(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestBreakerWithRedisBackends(t *testing.T) {
	// 同一 Redis 后端上的两个 Breaker 实例共享熔断决策
	client := newRedisClient(t)
	store, err := NewRedisStateStore(client)
	require.NoError(t, err)
	metrics, err := NewRedisMetrics(client)
	require.NoError(t, err)

	fake := xclock.NewFake(time.Unix(1000, 0))
	newInstance := func() *Breaker {
		b, berr := New(
			WithStateStore(store),
			WithMetrics(metrics),
			WithFailureRate(0.5, 0),
			WithResetTimeout(60*time.Second),
			WithClock(fake),
		)
		require.NoError(t, berr)
		return b
	}
	b1, b2 := newInstance(), newInstance()
	ctx := context.Background()

	// 实例 1 上触发熔断
	for range 2 {
		_ = b1.Execute(ctx, "shared", func() error { return errDownstream })
	}

	// 实例 2 立即观察到 OPEN 并快速拒绝
	err = b2.Execute(ctx, "shared", func() error {
		t.Fatal("operation must not run while the shared circuit is open")
		return nil
	})
	assert.True(t, IsOpen(err))

	// 实例 2 的探测成功后，实例 1 也恢复放行
	fake.Advance(61 * time.Second)
	require.NoError(t, b2.Execute(ctx, "shared", func() error { return nil }))
	assert.NoError(t, b1.Execute(ctx, "shared", func() error { return nil }))
}
