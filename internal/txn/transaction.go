// Package txn implements the transaction subsystem: an ordered group of up
// to N commands that runs to completion with no interleaving from
// non-transactional traffic on the same device (§3/§4.5). Per Design Note
// 3, committing a transaction *moves* it out of a producer-side "open" map
// and into a per-scheduler "ready" channel that only the worker drains —
// there is no shared list scanned under lock, and "executing" is
// unrepresentable in the open set because committed transactions simply
// aren't in it anymore.
package txn

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

type state int32

const (
	stateOpen state = iota
	stateCommitted
	stateExecuting
)

// Transaction is an ordered list of commands plus the bookkeeping needed to
// run them as one atomic unit of scheduling.
type Transaction struct {
	ID int64

	mu           sync.Mutex
	state        state
	cancelled    bool
	completed    bool
	commands     []*interfaces.Command
	results      []interfaces.Result
	abortOnError bool
	priority     interfaces.Priority
	timeout      time.Duration
	maxCommands  int
	startedAt    time.Time
	onComplete   func(success, failure int, results []interfaces.Result)
}

func newTransaction(id int64, defaultTimeout time.Duration, maxCommands int) *Transaction {
	return &Transaction{
		ID:           id,
		abortOnError: false, // default continue-on-error, per §3
		priority:     interfaces.PriorityHigh,
		timeout:      defaultTimeout,
		maxCommands:  maxCommands,
	}
}

// Add appends a command to the transaction. Only legal while open.
func (t *Transaction) Add(kind interfaces.CommandKind, params any) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateOpen {
		return 0, interfaces.New("txn.add", interfaces.CodeInvalidState, "transaction is not open")
	}
	if len(t.commands) >= t.maxCommands {
		return 0, interfaces.New("txn.add", interfaces.CodeInvalidParameter, "transaction command limit reached")
	}
	cmd := interfaces.NewCommand(0, kind, t.priority, params, t.ID)
	t.commands = append(t.commands, cmd)
	return len(t.commands) - 1, nil
}

// SetAbortOnError, SetPriority, and SetTimeout are legal only while open.
func (t *Transaction) SetAbortOnError(v bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateOpen {
		return interfaces.New("txn.set-flags", interfaces.CodeInvalidState, "transaction is not open")
	}
	t.abortOnError = v
	return nil
}

func (t *Transaction) SetPriority(p interfaces.Priority) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateOpen {
		return interfaces.New("txn.set-priority", interfaces.CodeInvalidState, "transaction is not open")
	}
	t.priority = p
	for _, cmd := range t.commands {
		cmd.Priority = p
	}
	return nil
}

func (t *Transaction) SetTimeout(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateOpen {
		return interfaces.New("txn.set-timeout", interfaces.CodeInvalidState, "transaction is not open")
	}
	t.timeout = d
	return nil
}

// cancel marks the transaction as cancelled and, if it hasn't started
// executing, synthesizes a cancelled result for every command and invokes
// the completion callback immediately (there usually is none yet — cancel
// before commit is the normal open-transaction path; cancel after commit
// but before the worker has popped it from the ready channel is the
// committed-not-executing path described in §5). Idempotent: a transaction
// can be cancelled at most once, and a transaction that already completed
// (via Finish) cannot be cancelled after the fact — either way the
// completion callback fires exactly once, mirroring Command.Complete's
// sync.Once guard.
func (t *Transaction) cancel() error {
	t.mu.Lock()
	if t.state == stateExecuting {
		t.mu.Unlock()
		return interfaces.New("txn.cancel", interfaces.CodeInvalidState, "transaction is already executing")
	}
	if t.completed {
		t.mu.Unlock()
		return nil
	}
	t.completed = true
	t.cancelled = true
	results := make([]interfaces.Result, len(t.commands))
	for i := range results {
		results[i] = interfaces.Result{Err: interfaces.New("txn.cancel", interfaces.CodeCancelled, "transaction cancelled")}
	}
	t.results = results
	cb := t.onComplete
	t.mu.Unlock()

	if cb != nil {
		cb(0, len(results), results)
	}
	return nil
}

// StartExecution records the wall-clock start time; called by the worker
// immediately before running the first command.
func (t *Transaction) StartExecution() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = time.Now()
}

func (t *Transaction) Commands() []*interfaces.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commands
}

func (t *Transaction) SetResult(i int, r interfaces.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[i] = r
}

func (t *Transaction) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

func (t *Transaction) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

func (t *Transaction) AbortOnError() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.abortOnError
}

// Finish invokes the completion callback with the final tallies and results
// array. Called by the worker once every command has run, timed out, or
// been aborted. Idempotent for the same reason cancel is: it's the other
// path that can fire the completion callback, and the two must never both
// fire for the same transaction.
func (t *Transaction) Finish(success, failure int) {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		return
	}
	t.completed = true
	cb := t.onComplete
	results := t.results
	t.mu.Unlock()
	if cb != nil {
		cb(success, failure, results)
	}
}

var txnIDCounter atomic.Int64

func nextTransactionID() int64 { return txnIDCounter.Add(1) }
