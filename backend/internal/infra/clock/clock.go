package clock

import (
	"sync"
	"time"
)

// Clock 为去重窗口与“今日”统计提供同一个时间来源，所有时间均为 UTC。
type Clock interface {
	Now() time.Time
}

// System 读取系统时间并转换为 UTC。
type System struct{}

// Now 返回当前 UTC 时间。
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fake 是可手动推进的时钟，用于测试。
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake 以给定时间创建 Fake。
func NewFake(start time.Time) *Fake {
	return &Fake{now: start.UTC()}
}

// Now 返回当前设定的时间。
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance 将时钟向前推进 d。
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set 直接设定时钟。
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.UTC()
}

// DayRange 返回 t 所在 UTC 自然日的 [start, end) 区间。
func DayRange(t time.Time) (time.Time, time.Time) {
	utc := t.UTC()
	start := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
