package labctl

import (
	"sync/atomic"
	"time"
)

// Stats is the §6.1 stats() return shape: a point-in-time snapshot of one
// scheduler's queue depths, counters, and connection/transaction state.
type Stats struct {
	HighQueueLen   int
	NormalQueueLen int
	LowQueueLen    int

	Processed         uint64
	Errors            uint64
	ReconnectAttempts uint64

	Connected   bool
	Processing  bool
	ActiveTxnID int64
	InTxnMode   bool
}

// latencyBuckets are logarithmically spaced cutoffs in nanoseconds, from
// 1us to 10s, used for the diagnostics histogram below. Not named in §6.1
// but a direct generalization of the teacher's latency-bucket metrics —
// the scheduler's command-delay-heavy workload benefits from the same
// visibility a block device's read/write latency gets there.
var latencyBuckets = [8]uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

// internalMetrics is the latency backing store a scheduler keeps alongside
// its Worker; LatencyStats() reads from it. Stats() takes its processed and
// error counts from the Worker's own Metrics, so the processed and errors
// fields here are not updated.
type internalMetrics struct {
	processed atomic.Uint64
	errors    atomic.Uint64

	totalLatencyNs atomic.Uint64
	opCount        atomic.Uint64
	latency        [8]atomic.Uint64

	startTime atomic.Int64
}

func newInternalMetrics() *internalMetrics {
	m := &internalMetrics{}
	m.startTime.Store(time.Now().UnixNano())
	return m
}

func (m *internalMetrics) recordLatency(d time.Duration) {
	ns := uint64(d.Nanoseconds())
	m.totalLatencyNs.Add(ns)
	m.opCount.Add(1)
	for i, bucket := range latencyBuckets {
		if ns <= bucket {
			m.latency[i].Add(1)
		}
	}
}

// LatencySnapshot is diagnostic-only: average latency and the cumulative
// histogram bucket counts, not part of the §6.1 surface but useful for
// callers instrumenting a fleet.
type LatencySnapshot struct {
	AverageNs uint64
	Buckets   [8]uint64
	UptimeNs  uint64
}

func (m *internalMetrics) snapshot() LatencySnapshot {
	var s LatencySnapshot
	opCount := m.opCount.Load()
	if opCount > 0 {
		s.AverageNs = m.totalLatencyNs.Load() / opCount
	}
	for i := range latencyBuckets {
		s.Buckets[i] = m.latency[i].Load()
	}
	s.UptimeNs = uint64(time.Now().UnixNano() - m.startTime.Load())
	return s
}
