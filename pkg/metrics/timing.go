// Package metrics records how long tt's pipeline stages take.
//
// Each stage (fetch, hierarchy build, linearize, fold toggle, render) has
// a TimingMetric updated with atomic operations, so the UI loop and the
// fetch goroutine can record concurrently. Collection is on by default
// and disabled with TT_METRICS=0. `tt --stats` prints a summary on exit.
//
// Usage:
//
//	func Build(...) {
//	    defer metrics.Timer(metrics.HierarchyBuild)()
//	    // ...
//	}
package metrics

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("TT_METRICS") != "0")
}

// Enabled reports whether timings are being recorded.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled turns recording on or off.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric accumulates durations for one stage. The zero value is
// not named; use the package-level stage metrics.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64 // ns
	max   atomic.Int64 // ns
	min   atomic.Int64 // ns, 0 until the first sample
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	storeIf(&m.max, ns, func(cur int64) bool { return ns > cur })
	storeIf(&m.min, ns, func(cur int64) bool { return cur == 0 || ns < cur })
}

// storeIf swaps v into a while better(current) holds.
func storeIf(a *atomic.Int64, v int64, better func(int64) bool) {
	for cur := a.Load(); better(cur); cur = a.Load() {
		if a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func (m *TimingMetric) Name() string { return m.name }
func (m *TimingMetric) Count() int64 { return m.count.Load() }
func (m *TimingMetric) MaxNs() int64 { return m.max.Load() }
func (m *TimingMetric) MinNs() int64 { return m.min.Load() }

// AvgNs is the mean sample, or 0 with no samples.
func (m *TimingMetric) AvgNs() int64 {
	n := m.count.Load()
	if n == 0 {
		return 0
	}
	return m.total.Load() / n
}

// Stats snapshots the metric in milliseconds.
func (m *TimingMetric) Stats() TimingStats {
	ms := func(ns int64) float64 { return float64(ns) / float64(time.Millisecond) }
	return TimingStats{
		Name:    m.name,
		Count:   m.Count(),
		TotalMs: ms(m.total.Load()),
		AvgMs:   ms(m.AvgNs()),
		MaxMs:   ms(m.MaxNs()),
		MinMs:   ms(m.MinNs()),
	}
}

// Reset drops all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

// TimingStats is a point-in-time copy of a TimingMetric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts timing a stage; call the result when the stage ends.
//
//	defer metrics.Timer(metrics.Linearize)()
func Timer(m *TimingMetric) func() {
	return TimerWithCallback(m, nil)
}

// TimerWithCallback is Timer that also hands the duration to cb.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

// Pipeline stages.
var (
	Fetch          = newTimingMetric("fetch")
	HierarchyBuild = newTimingMetric("hierarchy_build")
	Linearize      = newTimingMetric("linearize")
	FoldToggle     = newTimingMetric("fold_toggle")
	UIRender       = newTimingMetric("ui_render")
)

// AllTimingMetrics lists the stage metrics in pipeline order.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{Fetch, HierarchyBuild, Linearize, FoldToggle, UIRender}
}

// ResetAll resets every stage metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats returns stats for the stages that recorded anything.
func AllTimingStats() []TimingStats {
	var stats []TimingStats
	for _, m := range AllTimingMetrics() {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// WriteSummary prints one line per recorded stage.
func WriteSummary(w io.Writer) error {
	for _, st := range AllTimingStats() {
		if _, err := fmt.Fprintf(w, "%-16s n=%-6d avg=%.3fms max=%.3fms total=%.3fms\n",
			st.Name, st.Count, st.AvgMs, st.MaxMs, st.TotalMs); err != nil {
			return err
		}
	}
	return nil
}
