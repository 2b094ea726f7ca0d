package xtxn

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoJournal 基于 MongoDB 的审计日志。
//
// 设计决策: 排序键用 (timestamp, id) 而非单独 timestamp——
// 同一毫秒内的多条条目仍需稳定顺序，条目 ID 单调生成时可作平局裁决。
// 建议在 collection 上建立 {txn_id: 1, timestamp: 1} 复合索引。
type mongoJournal struct {
	coll *mongo.Collection
}

// NewMongoJournal 创建基于 MongoDB 的日志。
func NewMongoJournal(coll *mongo.Collection) (Journal, error) {
	if coll == nil {
		return nil, ErrNilMongoCollection
	}
	return &mongoJournal{coll: coll}, nil
}

// Append 实现 [Journal]。
func (j *mongoJournal) Append(ctx context.Context, entry JournalEntry) error {
	if _, err := j.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("xtxn: append journal entry: %w", err)
	}
	return nil
}

// Entries 实现 [Journal]。
func (j *mongoJournal) Entries(ctx context.Context, txnID string) ([]JournalEntry, error) {
	opts := mongooptions.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "id", Value: 1},
	})
	cursor, err := j.coll.Find(ctx, bson.D{{Key: "txn_id", Value: txnID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("xtxn: read journal: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	entries := make([]JournalEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("xtxn: decode journal entries: %w", err)
	}
	return entries, nil
}

// 编译期接口检查
var _ Journal = (*mongoJournal)(nil)
