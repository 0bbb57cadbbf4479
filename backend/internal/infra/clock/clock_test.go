package clock

import (
	"testing"
	"time"
)

func TestDayRangeUsesUTC(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	// 2025-11-04 02:30 CST 对应 UTC 2025-11-03 18:30。
	start, end := DayRange(time.Date(2025, 11, 4, 2, 30, 0, 0, shanghai))

	wantStart := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %s, want %s", start, wantStart)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("expected a 24h range, got %s", end.Sub(start))
	}
}

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2025, 11, 3, 23, 59, 30, 0, time.UTC)
	clk := NewFake(start)
	clk.Advance(45 * time.Second)
	if got := clk.Now(); !got.Equal(start.Add(45 * time.Second)) {
		t.Fatalf("unexpected now %s", got)
	}
	s, _ := DayRange(clk.Now())
	if s.Day() != 4 {
		t.Fatalf("expected day rollover, got %s", s)
	}
}
