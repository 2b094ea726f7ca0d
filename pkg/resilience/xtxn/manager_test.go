package xtxn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xguard/pkg/util/xclock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestManager 构造使用进程内后端和假时钟的管理器。
func newTestManager(t *testing.T, opts ...Option) (*Manager, *MemoryTracker, *xclock.Fake) {
	t.Helper()
	clock := xclock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tracker := newMemoryTracker(clock)
	all := append([]Option{
		WithTracker(tracker),
		WithClock(clock),
		WithIDGenerator(NewUUIDIDGenerator()),
	}, opts...)
	m, err := NewManager(all...)
	require.NoError(t, err)
	return m, tracker, clock
}

func TestNewManagerRequiresTracker(t *testing.T) {
	_, err := NewManager()
	require.ErrorIs(t, err, ErrNilTracker)
}

func TestBeginCapturesInitialSnapshot(t *testing.T) {
	m, tracker, clock := newTestManager(t)
	ctx := context.Background()

	tracker.Set("balance", 100)

	txn, err := m.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateActive, txn.State)
	assert.Equal(t, clock.Now(), txn.StartTime)
	assert.True(t, txn.EndTime.IsZero())
	require.NotNil(t, txn.Initial)
	assert.Equal(t, 100, txn.Initial.Data["balance"])

	entries, err := m.History(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EntryBegin, entries[0].Type)
	assert.Equal(t, txn.ID, entries[0].TxnID)
	require.NotNil(t, entries[0].Snapshot)
	assert.Equal(t, 100, entries[0].Snapshot.Data["balance"])
}

func TestBeginGeneratesUniqueIDs(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		txn, err := m.Begin(ctx)
		require.NoError(t, err)
		_, dup := seen[txn.ID]
		require.False(t, dup, "duplicate id %s", txn.ID)
		seen[txn.ID] = struct{}{}
	}
}

func TestCommitLifecycle(t *testing.T) {
	m, tracker, clock := newTestManager(t)
	ctx := context.Background()

	tracker.Set("balance", 100)
	txn, err := m.Begin(ctx)
	require.NoError(t, err)

	tracker.Set("balance", 50)
	clock.Advance(10 * time.Millisecond)

	committed, err := m.Commit(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, committed.State)
	assert.Equal(t, clock.Now(), committed.EndTime)
	require.NotNil(t, committed.Final)
	assert.Equal(t, 50, committed.Final.Data["balance"])

	// 提交不改动当前状态
	v, _ := tracker.Get("balance")
	assert.Equal(t, 50, v)

	// 日志恰好是 BEGIN, COMMIT 两条，顺序固定
	entries, err := m.History(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryBegin, entries[0].Type)
	assert.Equal(t, EntryCommit, entries[1].Type)
}

func TestRollbackRestoresInitialSnapshot(t *testing.T) {
	m, tracker, _ := newTestManager(t)
	ctx := context.Background()

	tracker.Set("balance", 100)
	tracker.Set("currency", "CNY")
	txn, err := m.Begin(ctx)
	require.NoError(t, err)

	tracker.Set("balance", -42)
	tracker.Delete("currency")
	tracker.Set("junk", true)

	rolled, err := m.Rollback(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRolledBack, rolled.State)

	v, _ := tracker.Get("balance")
	assert.Equal(t, 100, v)
	v, _ = tracker.Get("currency")
	assert.Equal(t, "CNY", v)
	_, ok := tracker.Get("junk")
	assert.False(t, ok)

	entries, err := m.History(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryRollback, entries[1].Type)
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	txn, err := m.Begin(ctx)
	require.NoError(t, err)
	_, err = m.Commit(ctx, txn.ID)
	require.NoError(t, err)

	// 重复提交：报错、状态不变、不追加日志
	got, err := m.Commit(ctx, txn.ID)
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StateCommitted, invalid.State)
	assert.Equal(t, StateCommitted, got.State)

	// 已提交事务也不能回滚
	_, err = m.Rollback(ctx, txn.ID)
	require.ErrorAs(t, err, &invalid)

	entries, err := m.History(ctx, txn.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	stored, err := m.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, stored.State)
}

func TestCommitUnknownTransaction(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Commit(context.Background(), "txn-missing")
	require.ErrorIs(t, err, ErrTxnNotFound)
}

// gatedTracker 的 Checkpoint 阻塞到 release 关闭，用于制造并发窗口。
type gatedTracker struct {
	*MemoryTracker
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedTracker) Checkpoint(ctx context.Context) (Snapshot, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.MemoryTracker.Checkpoint(ctx)
}

func TestConcurrentCommitsAreMutuallyExclusive(t *testing.T) {
	clock := xclock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	gated := &gatedTracker{
		MemoryTracker: newMemoryTracker(clock),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	m, err := NewManager(
		WithTracker(gated),
		WithClock(clock),
		WithIDGenerator(NewUUIDIDGenerator()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	close(gated.release) // Begin 的 Checkpoint 直接放行
	txn, err := m.Begin(ctx)
	require.NoError(t, err)

	gated.release = make(chan struct{})
	gated.entered = make(chan struct{})
	gated.once = sync.Once{}

	var g errgroup.Group
	g.Go(func() error {
		_, err := m.Commit(ctx, txn.ID)
		return err
	})

	// 第一个提交持锁后再发起第二个提交
	<-gated.entered
	_, err = m.Commit(ctx, txn.ID)
	require.ErrorIs(t, err, ErrResourceLocked)

	close(gated.release)
	require.NoError(t, g.Wait())

	stored, err := m.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, stored.State)
}

// failingJournal 在第 failAt 次 Append 返回错误。
type failingJournal struct {
	inner  Journal
	mu     sync.Mutex
	calls  int
	failAt int
}

func (f *failingJournal) Append(ctx context.Context, entry JournalEntry) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls == f.failAt
	f.mu.Unlock()
	if fail {
		return errors.New("journal backend unavailable")
	}
	return f.inner.Append(ctx, entry)
}

func (f *failingJournal) Entries(ctx context.Context, txnID string) ([]JournalEntry, error) {
	return f.inner.Entries(ctx, txnID)
}

func TestBeginJournalFailureMarksFailed(t *testing.T) {
	journal := &failingJournal{inner: NewMemoryJournal(), failAt: 1}
	store := NewMemoryStore()
	m, _, _ := newTestManager(t, WithJournal(journal), WithStore(store))
	ctx := context.Background()

	_, err := m.Begin(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal begin entry")
}

func TestCommitJournalFailureMarksFailed(t *testing.T) {
	journal := &failingJournal{inner: NewMemoryJournal(), failAt: 2} // BEGIN 成功, COMMIT 失败
	m, _, _ := newTestManager(t, WithJournal(journal))
	ctx := context.Background()

	txn, err := m.Begin(ctx)
	require.NoError(t, err)

	_, err = m.Commit(ctx, txn.ID)
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, txn.ID, commitErr.ID)

	stored, err := m.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, stored.State)

	// FAILED 是终态
	_, err = m.Commit(ctx, txn.ID)
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StateFailed, invalid.State)
}

// brokenTracker Restore 恒定失败。
type brokenTracker struct {
	*MemoryTracker
}

func (b *brokenTracker) Restore(context.Context, Snapshot) error {
	return errors.New("state backend gone")
}

func TestRollbackFailureIsFatal(t *testing.T) {
	clock := xclock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	broken := &brokenTracker{MemoryTracker: newMemoryTracker(clock)}
	m, err := NewManager(
		WithTracker(broken),
		WithClock(clock),
		WithIDGenerator(NewUUIDIDGenerator()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	txn, err := m.Begin(ctx)
	require.NoError(t, err)

	_, err = m.Rollback(ctx, txn.ID)
	var rbErr *RollbackError
	require.ErrorAs(t, err, &rbErr)
	assert.False(t, rbErr.Retryable())

	stored, err := m.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, stored.State)

	// ERROR 日志记录了失败原因
	entries, err := m.History(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryError, entries[1].Type)
	assert.Contains(t, entries[1].Message, "state backend gone")
}

func TestRunCommitsOnSuccess(t *testing.T) {
	m, tracker, _ := newTestManager(t)
	ctx := context.Background()

	tracker.Set("count", 0)
	err := m.Run(ctx, func(ctx context.Context, txn Transaction) error {
		tracker.Set("count", 1)
		return nil
	})
	require.NoError(t, err)

	v, _ := tracker.Get("count")
	assert.Equal(t, 1, v)
}

func TestRunRollsBackOnError(t *testing.T) {
	m, tracker, _ := newTestManager(t)
	ctx := context.Background()

	tracker.Set("count", 0)
	boom := errors.New("boom")
	err := m.Run(ctx, func(ctx context.Context, txn Transaction) error {
		tracker.Set("count", 99)
		return boom
	})
	require.ErrorIs(t, err, boom)

	v, _ := tracker.Get("count")
	assert.Equal(t, 0, v)
}

func TestRunNilFunc(t *testing.T) {
	m, _, _ := newTestManager(t)
	require.ErrorIs(t, m.Run(context.Background(), nil), ErrNilFunc)
}

func TestManagerValidation(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Begin(nil) //nolint:staticcheck // 验证 nil context 防御
	require.ErrorIs(t, err, ErrNilContext)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Begin(canceled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestJournalOrderingUnderLoad(t *testing.T) {
	m, tracker, _ := newTestManager(t)
	ctx := context.Background()

	tracker.Set("n", 0)
	var g errgroup.Group
	for i := range 50 {
		g.Go(func() error {
			txn, err := m.Begin(ctx)
			if err != nil {
				return err
			}
			if i%2 == 0 {
				_, err = m.Commit(ctx, txn.ID)
			} else {
				_, err = m.Rollback(ctx, txn.ID)
			}
			if err != nil {
				return err
			}
			entries, err := m.History(ctx, txn.ID)
			if err != nil {
				return err
			}
			if len(entries) != 2 {
				return fmt.Errorf("txn %s: %d entries", txn.ID, len(entries))
			}
			if entries[0].Type != EntryBegin {
				return fmt.Errorf("txn %s: first entry %s", txn.ID, entries[0].Type)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
