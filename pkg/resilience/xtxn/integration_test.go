//go:build integration

package xtxn

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// 集成测试依赖外部服务，通过环境变量指定地址：
//
//	XGUARD_MONGO_URI       例如 mongodb://localhost:27017
//	XGUARD_ETCD_ENDPOINTS  例如 localhost:2379（逗号分隔）
//
// 未设置时跳过。

func newMongoCollection(t *testing.T) *mongo.Collection {
	t.Helper()
	uri := os.Getenv("XGUARD_MONGO_URI")
	if uri == "" {
		t.Skip("XGUARD_MONGO_URI 未设置，跳过 MongoDB 集成测试")
	}

	client, err := mongo.Connect(mongooptions.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	})

	coll := client.Database("xguard_test").Collection("txn_journal_" + strings.ReplaceAll(t.Name(), "/", "_"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = coll.Drop(ctx)
	})
	return coll
}

func TestMongoJournalOrdering(t *testing.T) {
	journal, err := NewMongoJournal(newMongoCollection(t))
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	types := []EntryType{EntryBegin, EntryCommit}
	for i, typ := range types {
		require.NoError(t, journal.Append(ctx, JournalEntry{
			ID:        string(rune('a' + i)),
			Type:      typ,
			TxnID:     "txn-m",
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	entries, err := journal.Entries(ctx, "txn-m")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryBegin, entries[0].Type)
	assert.Equal(t, EntryCommit, entries[1].Type)

	entries, err = journal.Entries(ctx, "txn-unknown")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMongoJournalWithManager(t *testing.T) {
	journal, err := NewMongoJournal(newMongoCollection(t))
	require.NoError(t, err)

	tracker := NewMemoryTracker()
	m, err := NewManager(WithTracker(tracker), WithJournal(journal))
	require.NoError(t, err)
	ctx := context.Background()

	tracker.Set("flag", true)
	txn, err := m.Begin(ctx)
	require.NoError(t, err)
	_, err = m.Commit(ctx, txn.ID)
	require.NoError(t, err)

	entries, err := m.History(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryBegin, entries[0].Type)
	assert.Equal(t, EntryCommit, entries[1].Type)
}

func newEtcdClient(t *testing.T) *clientv3.Client {
	t.Helper()
	endpoints := os.Getenv("XGUARD_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("XGUARD_ETCD_ENDPOINTS 未设置，跳过 etcd 集成测试")
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(endpoints, ","),
		DialTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestEtcdLockManager(t *testing.T) {
	client := newEtcdClient(t)
	ctx := context.Background()

	locks, err := NewEtcdLockManager(client, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = locks.Close() })

	h1, err := locks.TryAcquire(ctx, "res")
	require.NoError(t, err)
	assert.Equal(t, "res", h1.ResourceID())

	// 另一个 Session 的持有者互斥
	locks2, err := NewEtcdLockManager(client, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = locks2.Close() })

	_, err = locks2.TryAcquire(ctx, "res")
	require.ErrorIs(t, err, ErrResourceLocked)

	require.NoError(t, h1.Release(ctx))

	h2, err := locks2.TryAcquire(ctx, "res")
	require.NoError(t, err)
	require.NoError(t, h2.Release(ctx))
}
