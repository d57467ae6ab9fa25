package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight cycle observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	cyclesRun       atomic.Uint64
	emptyCycles     atomic.Uint64
	decisions       atomic.Uint64
	rejected        atomic.Uint64
	ordersSubmitted atomic.Uint64
	ordersSkipped   atomic.Uint64
	errorsTotal     atomic.Uint64

	// Latency tracking
	cycleSumNs   atomic.Int64
	cycleCount   atomic.Uint64
	lastCycleEnd atomic.Int64 // unix nanos
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordCycle records a finished cycle with its duration.
func (m *Metrics) RecordCycle(d time.Duration, decisions int) {
	m.cyclesRun.Add(1)
	if decisions == 0 {
		m.emptyCycles.Add(1)
	}
	m.decisions.Add(uint64(decisions))
	m.cycleSumNs.Add(d.Nanoseconds())
	m.cycleCount.Add(1)
	m.lastCycleEnd.Store(time.Now().UnixNano())
}

// RecordRejected records a model reply that failed validation or named an unknown asset.
func (m *Metrics) RecordRejected() {
	m.rejected.Add(1)
}

// RecordOrder records an executed attempt; submitted=false means the size gate skipped it.
func (m *Metrics) RecordOrder(submitted bool) {
	if submitted {
		m.ordersSubmitted.Add(1)
	} else {
		m.ordersSkipped.Add(1)
	}
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	CyclesRun       uint64
	EmptyCycles     uint64
	Decisions       uint64
	Rejected        uint64
	OrdersSubmitted uint64
	OrdersSkipped   uint64
	ErrorsTotal     uint64
	AvgCycle        time.Duration
	LastCycleAt     time.Time
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avg time.Duration
	if count := m.cycleCount.Load(); count > 0 {
		avg = time.Duration(m.cycleSumNs.Load() / int64(count))
	}

	var last time.Time
	if ns := m.lastCycleEnd.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}

	return MetricsSnapshot{
		CyclesRun:       m.cyclesRun.Load(),
		EmptyCycles:     m.emptyCycles.Load(),
		Decisions:       m.decisions.Load(),
		Rejected:        m.rejected.Load(),
		OrdersSubmitted: m.ordersSubmitted.Load(),
		OrdersSkipped:   m.ordersSkipped.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		AvgCycle:        avg,
		LastCycleAt:     last,
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.cyclesRun.Store(0)
	m.emptyCycles.Store(0)
	m.decisions.Store(0)
	m.rejected.Store(0)
	m.ordersSubmitted.Store(0)
	m.ordersSkipped.Store(0)
	m.errorsTotal.Store(0)
	m.cycleSumNs.Store(0)
	m.cycleCount.Store(0)
	m.lastCycleEnd.Store(0)
}
