// Package queue implements the per-device priority queue set, connection
// supervisor, and worker loop that make up the scheduler (Layer A). It is
// generic over internal/interfaces.Adapter and knows nothing about any
// particular device family.
package queue

import (
	"sync"
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// PriorityQueues is the three bounded FIFO channels described in §3/§4.2:
// high, normal, low, drained strictly in that order by the worker. Scanning
// operations (cancel-by-id/kind/age/transaction) take a mutex so concurrent
// scans don't interleave their drain-filter-refill passes with each other;
// they run concurrently with Enqueue/TryDequeue just fine since those are
// plain channel ops.
type PriorityQueues struct {
	high   chan *interfaces.Command
	normal chan *interfaces.Command
	low    chan *interfaces.Command

	scanMu sync.Mutex
}

func NewPriorityQueues(highCap, normalCap, lowCap int) *PriorityQueues {
	return &PriorityQueues{
		high:   make(chan *interfaces.Command, highCap),
		normal: make(chan *interfaces.Command, normalCap),
		low:    make(chan *interfaces.Command, lowCap),
	}
}

func (q *PriorityQueues) chanFor(p interfaces.Priority) chan *interfaces.Command {
	switch p {
	case interfaces.PriorityHigh:
		return q.high
	case interfaces.PriorityNormal:
		return q.normal
	default:
		return q.low
	}
}

// Enqueue implements the §4.2 contract: waitBudget == 0 is non-blocking
// (returns queue-full immediately), waitBudget < 0 blocks indefinitely,
// waitBudget > 0 blocks up to that duration and returns timeout if it
// elapses. Enqueue is atomic: the envelope either lands in the channel (and
// will be completed exactly once) or it never left the caller's hands.
func (q *PriorityQueues) Enqueue(cmd *interfaces.Command, waitBudget time.Duration) error {
	ch := q.chanFor(cmd.Priority)

	if waitBudget == 0 {
		select {
		case ch <- cmd:
			return nil
		default:
			return interfaces.New("enqueue", interfaces.CodeQueueFull, "priority queue is full")
		}
	}

	if waitBudget < 0 {
		ch <- cmd
		return nil
	}

	timer := time.NewTimer(waitBudget)
	defer timer.Stop()
	select {
	case ch <- cmd:
		return nil
	case <-timer.C:
		return interfaces.New("enqueue", interfaces.CodeTimeout, "enqueue wait budget elapsed")
	}
}

// TryDequeue drains strictly high before normal before low, never blocking.
func (q *PriorityQueues) TryDequeue() *interfaces.Command {
	select {
	case c := <-q.high:
		return c
	default:
	}
	select {
	case c := <-q.normal:
		return c
	default:
	}
	select {
	case c := <-q.low:
		return c
	default:
	}
	return nil
}

// Lens reports the current occupancy of each channel, for Stats().
func (q *PriorityQueues) Lens() (high, normal, low int) {
	return len(q.high), len(q.normal), len(q.low)
}

// HasKind scans all three queues for a pending command of the given kind.
// This fulfills the §6.1 has_kind contract properly rather than the
// source's "true whenever the normal queue is non-empty" approximation
// (see the Open Question decisions in DESIGN.md).
func (q *PriorityQueues) HasKind(kind interfaces.CommandKind) bool {
	q.scanMu.Lock()
	defer q.scanMu.Unlock()

	found := false
	for _, ch := range []chan *interfaces.Command{q.high, q.normal, q.low} {
		drained := drainAll(ch)
		for _, c := range drained {
			if c.Kind == kind {
				found = true
			}
		}
		refill(ch, drained)
		if found {
			return true
		}
	}
	return false
}

func drainAll(ch chan *interfaces.Command) []*interfaces.Command {
	var drained []*interfaces.Command
	for {
		select {
		case c := <-ch:
			drained = append(drained, c)
		default:
			return drained
		}
	}
}

func refill(ch chan *interfaces.Command, survivors []*interfaces.Command) {
	for _, c := range survivors {
		ch <- c
	}
}

func cancelResult(op string) interfaces.Result {
	return interfaces.Result{Err: interfaces.New(op, interfaces.CodeCancelled, "cancelled")}
}

// cancelMatching drains every queue, completes matching commands as
// cancelled, and refills the survivors in their original relative order.
func (q *PriorityQueues) cancelMatching(op string, match func(*interfaces.Command) bool) int {
	q.scanMu.Lock()
	defer q.scanMu.Unlock()

	cancelled := 0
	for _, ch := range []chan *interfaces.Command{q.high, q.normal, q.low} {
		drained := drainAll(ch)
		survivors := drained[:0:0]
		for _, c := range drained {
			if match(c) {
				c.Complete(cancelResult(op))
				cancelled++
			} else {
				survivors = append(survivors, c)
			}
		}
		refill(ch, survivors)
	}
	return cancelled
}

// CancelByID cancels at most one queued command with the given ID.
func (q *PriorityQueues) CancelByID(id int64) bool {
	hit := false
	q.cancelMatching("cancel-by-id", func(c *interfaces.Command) bool {
		if !hit && c.ID == id {
			hit = true
			return true
		}
		return false
	})
	return hit
}

// CancelByKind cancels every queued command of the given kind.
func (q *PriorityQueues) CancelByKind(kind interfaces.CommandKind) int {
	return q.cancelMatching("cancel-by-kind", func(c *interfaces.Command) bool {
		return c.Kind == kind
	})
}

// CancelByAge cancels every queued command older than age.
func (q *PriorityQueues) CancelByAge(age time.Duration) int {
	cutoff := time.Now().Add(-age)
	return q.cancelMatching("cancel-by-age", func(c *interfaces.Command) bool {
		return c.Born.Before(cutoff)
	})
}

// CancelByTransaction cancels every queued command belonging to txnID. In
// practice transactional commands never pass through these queues (they run
// directly off the transaction's own list — see internal/txn), but this is
// kept for symmetry with the scanning-operation family and to catch
// misrouted commands defensively.
func (q *PriorityQueues) CancelByTransaction(txnID int64) int {
	return q.cancelMatching("cancel-by-transaction", func(c *interfaces.Command) bool {
		return c.TxnID == txnID
	})
}

// CancelAll cancels every queued command regardless of kind or age.
func (q *PriorityQueues) CancelAll() int {
	return q.cancelMatching("cancel-all", func(*interfaces.Command) bool { return true })
}
