package metrics

import (
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("expected count 2, got %d", s.Count)
	}
	if s.MaxMs != 4 {
		t.Errorf("expected max 4ms, got %v", s.MaxMs)
	}
	if s.MinMs != 2 {
		t.Errorf("expected min 2ms, got %v", s.MinMs)
	}
	if s.AvgMs != 3 {
		t.Errorf("expected avg 3ms, got %v", s.AvgMs)
	}
}

func TestTimerDisabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("disabled")
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("expected no samples while disabled, got %d", m.Count())
	}
}

func TestAllTimingStatsOnlyReportsUsed(t *testing.T) {
	SetEnabled(true)
	reset := func() {
		for _, m := range AllTimingMetrics() {
			m.Reset()
		}
	}
	reset()
	defer reset()

	Projection.Record(time.Millisecond)
	var cbCalled bool
	TimerWithCallback(Layout, func(time.Duration) { cbCalled = true })()

	stats := AllTimingStats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 metrics with data, got %d", len(stats))
	}
	if stats[0].Name != "projection" || stats[1].Name != "layout" {
		t.Errorf("unexpected order: %s, %s", stats[0].Name, stats[1].Name)
	}
	if !cbCalled {
		t.Error("expected callback to fire")
	}
}
