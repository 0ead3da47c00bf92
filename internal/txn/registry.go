package txn

import (
	"sync"
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// Registry tracks a scheduler's transactions. The "open" set is a
// producer-side map keyed by handle (ID); Commit moves a transaction out of
// that map and into the ready channel, which only the worker drains via
// NextReady. This is the move-based design from Design Note 3.
type Registry struct {
	maxCommands    int
	defaultTimeout time.Duration

	mu   sync.Mutex
	open map[int64]*Transaction

	ready chan *Transaction
}

func NewRegistry(maxCommands int, defaultTimeout time.Duration, readyCapacity int) *Registry {
	return &Registry{
		maxCommands:    maxCommands,
		defaultTimeout: defaultTimeout,
		open:           make(map[int64]*Transaction),
		ready:          make(chan *Transaction, readyCapacity),
	}
}

// Begin creates a new open transaction and registers it.
func (r *Registry) Begin() *Transaction {
	t := newTransaction(nextTransactionID(), r.defaultTimeout, r.maxCommands)
	r.mu.Lock()
	r.open[t.ID] = t
	r.mu.Unlock()
	return t
}

// Commit moves a transaction from the open set into the ready channel. The
// transaction must currently be open; once committed it is no longer in the
// open map, so Cancel rejects it and only CancelTransaction can still cancel
// it before execution starts.
func (r *Registry) Commit(id int64, callback func(success, failure int, results []interfaces.Result)) error {
	r.mu.Lock()
	t, ok := r.open[id]
	if !ok {
		r.mu.Unlock()
		return interfaces.New("txn.commit", interfaces.CodeInvalidParameter, "unknown transaction handle")
	}
	delete(r.open, id)
	r.mu.Unlock()

	t.mu.Lock()
	if t.state != stateOpen {
		t.mu.Unlock()
		return interfaces.New("txn.commit", interfaces.CodeInvalidState, "transaction already committed")
	}
	t.state = stateCommitted
	t.onComplete = callback
	t.results = make([]interfaces.Result, len(t.commands))
	t.mu.Unlock()

	select {
	case r.ready <- t:
		return nil
	default:
		return interfaces.New("txn.commit", interfaces.CodeQueueFull, "transaction ready queue is full")
	}
}

// Cancel cancels an open transaction by ID, removing it from the open map.
// A committed transaction is no longer in that map, so Cancel rejects it
// with invalid-parameter; CancelTransaction cancels by handle and also
// covers the committed-but-not-yet-executing case.
func (r *Registry) Cancel(id int64) error {
	r.mu.Lock()
	t, ok := r.open[id]
	if ok {
		delete(r.open, id)
	}
	r.mu.Unlock()

	if !ok {
		// Not in the open map: either already committed (find nothing to
		// delete there, but cancel() below still checks executing state
		// correctly because the caller must have kept their own handle)
		// or unknown. Since committed transactions are only reachable via
		// their original *Transaction handle in this design, callers that
		// committed must cancel through that handle directly; this path
		// covers open-transaction cancellation.
		return interfaces.New("txn.cancel", interfaces.CodeInvalidParameter, "unknown or already-committed transaction handle")
	}
	return t.cancel()
}

// CancelTransaction cancels by direct handle, covering both the open and
// committed-not-executing cases described in §5. This is the method the
// public API actually exposes (a caller holds the *Transaction handle
// returned by Begin, not just an ID).
func CancelTransaction(t *Transaction) error {
	return t.cancel()
}

// NextReady pops the next execution-eligible transaction, skipping (and
// discarding) any that were cancelled while waiting in the channel. Popping
// marks the transaction executing, fulfilling "committing moves it into the
// ready channel; only the worker drains it."
func (r *Registry) NextReady() *Transaction {
	for {
		select {
		case t := <-r.ready:
			t.mu.Lock()
			if t.cancelled {
				t.mu.Unlock()
				continue
			}
			t.state = stateExecuting
			t.mu.Unlock()
			return t
		default:
			return nil
		}
	}
}

// Remove drops bookkeeping for a finished transaction. Committed
// transactions are already out of the open map by the time they run, so
// this is a safe no-op in the common case; it exists for symmetry with
// §4.5 step 4 ("remove the transaction from the registry").
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	delete(r.open, id)
	r.mu.Unlock()
}

// Drain cancels every open transaction and completes every committed-but-
// not-yet-executing one with a cancelled result, for use during shutdown.
func (r *Registry) Drain() {
	r.mu.Lock()
	open := make([]*Transaction, 0, len(r.open))
	for _, t := range r.open {
		open = append(open, t)
	}
	r.open = make(map[int64]*Transaction)
	r.mu.Unlock()

	for _, t := range open {
		_ = t.cancel()
	}

	for {
		select {
		case t := <-r.ready:
			_ = t.cancel()
		default:
			return
		}
	}
}
