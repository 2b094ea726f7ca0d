package xtxn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultStoreKeyPrefix = "xguard:txn:record:"

// redisStore 基于 Redis 的事务存储。
//
// Save 用 SET NX 保证 ID 唯一，Update 用 SET XX 保证记录已存在，
// 两者都是单命令原子操作。
type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreOption 配置 Redis 事务存储。
type RedisStoreOption func(*redisStore)

// WithStoreKeyPrefix 设置事务记录 key 前缀。
func WithStoreKeyPrefix(prefix string) RedisStoreOption {
	return func(s *redisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore 创建基于 Redis 的事务存储。
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (Store, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	s := &redisStore{client: client, prefix: defaultStoreKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *redisStore) key(id string) string {
	return s.prefix + id
}

// Save 实现 [Store]。
func (s *redisStore) Save(ctx context.Context, txn Transaction) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("xtxn: encode transaction: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(txn.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("xtxn: save transaction: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, txn.ID)
	}
	return nil
}

// Get 实现 [Store]。
func (s *redisStore) Get(ctx context.Context, id string) (Transaction, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Transaction{}, fmt.Errorf("%w: %s", ErrTxnNotFound, id)
		}
		return Transaction{}, fmt.Errorf("xtxn: get transaction: %w", err)
	}
	var txn Transaction
	if err := json.Unmarshal([]byte(raw), &txn); err != nil {
		return Transaction{}, fmt.Errorf("xtxn: decode transaction: %w", err)
	}
	return txn, nil
}

// Update 实现 [Store]。
func (s *redisStore) Update(ctx context.Context, txn Transaction) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("xtxn: encode transaction: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.key(txn.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("xtxn: update transaction: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTxnNotFound, txn.ID)
	}
	return nil
}

// 编译期接口检查
var _ Store = (*redisStore)(nil)
