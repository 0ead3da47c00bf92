package interfaces

import (
	"sync"
	"time"
)

// Result pairs an error with a kind-discriminated payload. A nil Err with a
// nil Payload is a valid "succeeded, nothing to report" result.
type Result struct {
	Err     error
	Payload any
}

// Command is the envelope the scheduler queues, dispatches, and completes
// exactly once. It carries one of two completion paths — a one-shot
// receiver channel for blocking callers, or a callback for async callers —
// never both at once, matching Design Note 1: the blocking path is a typed
// channel rather than an intrusive lock-guarded completion flag.
type Command struct {
	ID       int64
	Kind     CommandKind
	Priority Priority
	Params   any
	TxnID    int64
	Born     time.Time
	UserData any

	once     sync.Once
	recv     chan Result
	callback func(Result)
}

// NewCommand constructs an envelope. ID is 0 for commands that belong to a
// transaction and are never individually enqueued by ID (the scheduler
// assigns a process-wide ID only to standalone submissions).
func NewCommand(id int64, kind CommandKind, priority Priority, params any, txnID int64) *Command {
	return &Command{
		ID:       id,
		Kind:     kind,
		Priority: priority,
		Params:   params,
		TxnID:    txnID,
		Born:     time.Now(),
	}
}

// Blocking arms the command with a capacity-1 receiver channel and returns
// it for the caller to await with its own deadline. A timed-out receiver
// simply stops reading; Complete's send into a buffered channel of size 1
// never blocks, so the worker never stalls on an abandoned caller.
func (c *Command) Blocking() <-chan Result {
	ch := make(chan Result, 1)
	c.recv = ch
	return ch
}

// Async arms the command with a callback continuation and an opaque user
// payload threaded back through unchanged.
func (c *Command) Async(cb func(Result), user any) {
	c.callback = cb
	c.UserData = user
}

// InTransaction reports whether this command belongs to a transaction (and
// so has no individual completion path of its own — its result is recorded
// directly into the transaction's results array instead).
func (c *Command) InTransaction() bool { return c.TxnID != 0 }

// Complete delivers r through whichever completion path was armed. It is
// safe to call more than once; only the first call has any effect, which is
// the "completion is signalled exactly once" invariant.
func (c *Command) Complete(r Result) {
	c.once.Do(func() {
		if c.recv != nil {
			c.recv <- r
			return
		}
		if c.callback != nil {
			c.callback(r)
		}
	})
}
