package infra

import (
	"testing"
	"time"
)

func TestMetrics_RecordCycle(t *testing.T) {
	m := &Metrics{}

	m.RecordCycle(1*time.Second, 2)
	m.RecordCycle(2*time.Second, 0)
	m.RecordCycle(3*time.Second, 1)

	snap := m.Snapshot()

	if snap.CyclesRun != 3 {
		t.Errorf("Expected 3 cycles, got %d", snap.CyclesRun)
	}
	if snap.EmptyCycles != 1 {
		t.Errorf("Expected 1 empty cycle, got %d", snap.EmptyCycles)
	}
	if snap.Decisions != 3 {
		t.Errorf("Expected 3 decisions, got %d", snap.Decisions)
	}
	// (1s + 2s + 3s) / 3 = 2s
	if snap.AvgCycle != 2*time.Second {
		t.Errorf("Expected avg 2s, got %v", snap.AvgCycle)
	}
	if snap.LastCycleAt.IsZero() {
		t.Error("Expected last cycle time to be set")
	}
}

func TestMetrics_Orders(t *testing.T) {
	m := &Metrics{}

	m.RecordOrder(true)
	m.RecordOrder(false)
	m.RecordOrder(false)
	m.RecordRejected()
	m.RecordError()

	snap := m.Snapshot()
	if snap.OrdersSubmitted != 1 || snap.OrdersSkipped != 2 {
		t.Errorf("submitted=%d skipped=%d", snap.OrdersSubmitted, snap.OrdersSkipped)
	}
	if snap.Rejected != 1 || snap.ErrorsTotal != 1 {
		t.Errorf("rejected=%d errors=%d", snap.Rejected, snap.ErrorsTotal)
	}

	m.Reset()
	if m.Snapshot().OrdersSubmitted != 0 {
		t.Error("Reset should clear counters")
	}
}
