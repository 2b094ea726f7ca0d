package xtxn

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const journalShardCount = 32 // 必须是 2 的幂

type journalShard struct {
	mu      sync.RWMutex
	entries map[string][]JournalEntry // txnID -> 按追加顺序的条目
}

// memoryJournal 进程内审计日志，按事务 ID 分片降低锁竞争。
type memoryJournal struct {
	shards [journalShardCount]journalShard
}

// NewMemoryJournal 创建进程内日志。
func NewMemoryJournal() Journal {
	j := &memoryJournal{}
	for i := range j.shards {
		j.shards[i].entries = make(map[string][]JournalEntry)
	}
	return j
}

func (j *memoryJournal) shard(txnID string) *journalShard {
	return &j.shards[xxhash.Sum64String(txnID)&(journalShardCount-1)]
}

// Append 实现 [Journal]。
func (j *memoryJournal) Append(ctx context.Context, entry JournalEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := j.shard(entry.TxnID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entries[entry.TxnID] = append(sh.entries[entry.TxnID], entry)
	return nil
}

// Entries 实现 [Journal]。
func (j *memoryJournal) Entries(ctx context.Context, txnID string) ([]JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := j.shard(txnID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	stored := sh.entries[txnID]
	out := make([]JournalEntry, len(stored))
	copy(out, stored)
	return out, nil
}

// 编译期接口检查
var _ Journal = (*memoryJournal)(nil)
