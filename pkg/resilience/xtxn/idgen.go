package xtxn

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/sony/sonyflake/v2"
)

// txnIDPrefix 事务 ID 前缀，便于在日志和存储中识别。
const txnIDPrefix = "txn-"

// sonyflakeIDGenerator 基于 Sonyflake 的 ID 生成器。
//
// 生成的 ID 时间有序，同一进程内严格递增，跨进程靠机器 ID 区分。
type sonyflakeIDGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflakeIDGenerator 创建 Sonyflake ID 生成器。
//
// 设计决策: 机器 ID 默认取私有 IP 低 16 位（sonyflake 内置方式），
// 容器等取不到私有 IP 的环境下退化为随机 16 位。随机冲突概率
// 由 Sonyflake 的时间 + 序列分量兜底，事务 ID 碰撞仍需
// Store.Save 的唯一性约束做最终防线。
func NewSonyflakeIDGenerator() (IDGenerator, error) {
	sf, err := sonyflake.New(sonyflake.Settings{})
	if err != nil {
		// 取不到私有 IP 时退化为随机机器 ID
		sf, err = sonyflake.New(sonyflake.Settings{
			MachineID: randomMachineID,
		})
		if err != nil {
			return nil, fmt.Errorf("xtxn: init sonyflake: %w", err)
		}
	}
	return &sonyflakeIDGenerator{sf: sf}, nil
}

func randomMachineID() (int, error) {
	id := uuid.New()
	return int(binary.BigEndian.Uint16(id[14:16])), nil
}

// NextID 实现 [IDGenerator]。
func (g *sonyflakeIDGenerator) NextID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("xtxn: generate id: %w", err)
	}
	return txnIDPrefix + strconv.FormatInt(id, 36), nil
}

// uuidIDGenerator 基于 UUID v4 的 ID 生成器。
// 无时间有序性，但无任何环境依赖，适合测试和单机场景。
type uuidIDGenerator struct{}

// NewUUIDIDGenerator 创建 UUID ID 生成器。
func NewUUIDIDGenerator() IDGenerator {
	return uuidIDGenerator{}
}

// NextID 实现 [IDGenerator]。
func (uuidIDGenerator) NextID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return txnIDPrefix + uuid.NewString(), nil
}

// 编译期接口检查
var (
	_ IDGenerator = (*sonyflakeIDGenerator)(nil)
	_ IDGenerator = uuidIDGenerator{}
)
