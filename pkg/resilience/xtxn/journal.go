package xtxn

import (
	"context"
	"time"
)

// EntryType 日志条目类型。
type EntryType string

const (
	// EntryBegin 事务开始。
	EntryBegin EntryType = "BEGIN"

	// EntryCommit 事务提交。
	EntryCommit EntryType = "COMMIT"

	// EntryRollback 事务回滚。
	EntryRollback EntryType = "ROLLBACK"

	// EntryError 事务出错。
	EntryError EntryType = "ERROR"
)

// JournalEntry 一条审计日志。
//
// 条目只追加、不修改：同一事务的条目按写入顺序构成完整的生命周期记录。
type JournalEntry struct {
	// ID 条目唯一 ID。
	ID string `json:"id" bson:"id"`

	// Type 条目类型。
	Type EntryType `json:"type" bson:"type"`

	// TxnID 所属事务 ID。
	TxnID string `json:"txn_id" bson:"txn_id"`

	// Timestamp 写入时间。
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`

	// Snapshot 关联快照：BEGIN 带初始快照，COMMIT 带最终快照。
	Snapshot *Snapshot `json:"snapshot,omitempty" bson:"snapshot,omitempty"`

	// Message 附加信息，ERROR 条目记录失败原因。
	Message string `json:"message,omitempty" bson:"message,omitempty"`
}

// Journal 追加式审计日志。
//
// 实现保证同一事务的条目按 Append 顺序返回；所有方法并发安全。
type Journal interface {
	// Append 追加一条日志。
	Append(ctx context.Context, entry JournalEntry) error

	// Entries 按写入顺序返回指定事务的全部日志。
	// 事务无日志时返回空切片而非错误。
	Entries(ctx context.Context, txnID string) ([]JournalEntry, error)
}
