// Package xclock 提供可注入的时钟抽象。
//
// 熔断器的冷却窗口、锁租约的过期判断都依赖当前时间。
// 通过注入 Clock 接口，测试可以精确推进时间而无需 time.Sleep。
package xclock

import (
	"sync"
	"time"
)

// Clock 时钟接口。
type Clock interface {
	// Now 返回当前时间。
	Now() time.Time
}

// System 返回基于 time.Now 的系统时钟。
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Fake 可手动推进的时钟，仅用于测试。
// 所有方法并发安全。
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake 创建 Fake 时钟，初始时间为 start。
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now 返回当前（虚拟）时间。
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance 将时钟向前推进 d。
// d 为负时向后回拨（用于时钟回拨场景的测试）。
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set 将时钟设置为指定时间。
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// 编译期接口检查。
var (
	_ Clock = systemClock{}
	_ Clock = (*Fake)(nil)
)
