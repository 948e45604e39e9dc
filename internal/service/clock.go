package service

import (
	"sync"
	"time"

	"github.com/anishthebud/look-at-me-2/internal/recurrence"
)

// Clock 时钟接口
// 业务逻辑不直接读系统时钟,通过注入的时钟取"现在",保证测试可复现
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Today 取时钟当前所在的日历日
func Today(c Clock) recurrence.Date {
	return recurrence.FromTime(c.Now())
}

// FakeClock 可控时钟,测试用
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFakeClock 创建固定起点的可控时钟
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set 设置当前时间
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance 前进指定时长
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
