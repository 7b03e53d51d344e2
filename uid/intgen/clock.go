package intgen

import (
	"time"
)

// Clock 毫秒时钟
type Clock interface {
	// NowMillis 返回自 Unix 纪元以来的毫秒数，不阻塞
	NowMillis() uint64
}

// ClockFunc 把普通函数适配为 Clock
type ClockFunc func() uint64

func (f ClockFunc) NowMillis() uint64 {
	return f()
}

// SystemClock 基于单调时钟的系统时钟
// 创建时记录一次墙上时间，之后只累加单调时钟的流逝时间，不受 NTP 回拨影响
type SystemClock struct {
	base time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{base: time.Now()}
}

func (c *SystemClock) NowMillis() uint64 {
	return uint64(c.base.UnixMilli() + time.Since(c.base).Milliseconds())
}
