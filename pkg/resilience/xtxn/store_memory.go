package xtxn

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const storeShardCount = 32 // 必须是 2 的幂

type storeShard struct {
	mu   sync.RWMutex
	txns map[string]Transaction
}

// memoryStore 进程内事务存储。
type memoryStore struct {
	shards [storeShardCount]storeShard
}

// NewMemoryStore 创建进程内事务存储。
func NewMemoryStore() Store {
	s := &memoryStore{}
	for i := range s.shards {
		s.shards[i].txns = make(map[string]Transaction)
	}
	return s
}

func (s *memoryStore) shard(id string) *storeShard {
	return &s.shards[xxhash.Sum64String(id)&(storeShardCount-1)]
}

// Save 实现 [Store]。
func (s *memoryStore) Save(ctx context.Context, txn Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shard(txn.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.txns[txn.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, txn.ID)
	}
	sh.txns[txn.ID] = txn
	return nil
}

// Get 实现 [Store]。
func (s *memoryStore) Get(ctx context.Context, id string) (Transaction, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	txn, ok := sh.txns[id]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: %s", ErrTxnNotFound, id)
	}
	return txn, nil
}

// Update 实现 [Store]。
func (s *memoryStore) Update(ctx context.Context, txn Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shard(txn.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.txns[txn.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrTxnNotFound, txn.ID)
	}
	sh.txns[txn.ID] = txn
	return nil
}

// 编译期接口检查
var _ Store = (*memoryStore)(nil)
