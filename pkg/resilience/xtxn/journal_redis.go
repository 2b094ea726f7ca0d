package xtxn

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultJournalKeyPrefix = "xguard:txn:journal:"

// redisJournal 基于 Redis List 的审计日志。
//
// 每个事务一个 List key，RPUSH 追加天然保持写入顺序。
type redisJournal struct {
	client redis.UniversalClient
	prefix string
}

// RedisJournalOption 配置 Redis 日志。
type RedisJournalOption func(*redisJournal)

// WithJournalKeyPrefix 设置日志 key 前缀。
func WithJournalKeyPrefix(prefix string) RedisJournalOption {
	return func(j *redisJournal) {
		if prefix != "" {
			j.prefix = prefix
		}
	}
}

// NewRedisJournal 创建基于 Redis 的日志。
func NewRedisJournal(client redis.UniversalClient, opts ...RedisJournalOption) (Journal, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	j := &redisJournal{client: client, prefix: defaultJournalKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j, nil
}

func (j *redisJournal) key(txnID string) string {
	return j.prefix + txnID
}

// Append 实现 [Journal]。
func (j *redisJournal) Append(ctx context.Context, entry JournalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("xtxn: encode journal entry: %w", err)
	}
	if err := j.client.RPush(ctx, j.key(entry.TxnID), data).Err(); err != nil {
		return fmt.Errorf("xtxn: append journal entry: %w", err)
	}
	return nil
}

// Entries 实现 [Journal]。
func (j *redisJournal) Entries(ctx context.Context, txnID string) ([]JournalEntry, error) {
	raw, err := j.client.LRange(ctx, j.key(txnID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("xtxn: read journal: %w", err)
	}
	entries := make([]JournalEntry, 0, len(raw))
	for _, item := range raw {
		var entry JournalEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("xtxn: decode journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// 编译期接口检查
var _ Journal = (*redisJournal)(nil)
