// Package labctl is the core of a multi-device laboratory instrumentation
// controller: a generic, thread-safe per-device command scheduler (this
// file, command.go, the internal/queue and internal/txn packages) and a
// BioLogic electrochemical technique state machine (package biologic) that
// layers on top of it. Concrete device adapters live in their own
// top-level packages (powersupply, tempcontroller, daq, thermocouple,
// biologic); fleet composes several schedulers for concurrent operation.
package labctl

import (
	"context"
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
	"github.com/kjorgensen/labctl/internal/logging"
	"github.com/kjorgensen/labctl/internal/queue"
	"github.com/kjorgensen/labctl/internal/txn"
)

// Options configures a Scheduler beyond the adapter itself.
type Options struct {
	// Logger defaults to the package-level logging.Default() logger.
	Logger Logger
	// Tunables defaults to DefaultTunables().
	Tunables *Tunables
}

// Scheduler drives one device: a single dedicated worker goroutine owns the
// wire for the lifetime of every command or transaction it runs, backed by
// three priority queues, a connection supervisor, and a transaction
// registry (§2 Layer A).
type Scheduler struct {
	deviceID string
	adapter  Adapter
	tunables Tunables
	logger   Logger

	queues   *queue.PriorityQueues
	conn     *queue.ConnectionSupervisor
	registry *txn.Registry
	worker   *queue.Worker

	metrics *internalMetrics
}

// Create starts a scheduler for one device: it builds the priority queues,
// connection supervisor, and transaction registry, then launches the
// worker goroutine, which immediately attempts an initial connect
// (non-fatal on failure — the worker's reconnect loop takes over).
func Create(deviceID string, adapter Adapter, opts *Options) (*Scheduler, error) {
	if adapter == nil {
		return nil, NewError("create", CodeInvalidParameter, "adapter must not be nil")
	}
	if opts == nil {
		opts = &Options{}
	}

	tunables := DefaultTunables()
	if opts.Tunables != nil {
		tunables = *opts.Tunables
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	s := &Scheduler{
		deviceID: deviceID,
		adapter:  adapter,
		tunables: tunables,
		logger:   logger,
		metrics:  newInternalMetrics(),
	}

	s.queues = queue.NewPriorityQueues(tunables.HighQueueCapacity, tunables.NormalQueueCapacity, tunables.LowQueueCapacity)
	s.conn = queue.NewConnectionSupervisor(tunables.ReconnectBase, tunables.ReconnectCap, tunables.ReconnectExponentCap)
	s.registry = txn.NewRegistry(tunables.TransactionMax, tunables.TransactionTimeout, tunables.TransactionReadyBuffer)

	w := queue.NewWorker(deviceID, adapter, s.queues, s.registry, s.conn, logger)
	w.EmptyQueuePoll = tunables.EmptyQueuePoll
	w.DisconnectedPoll = tunables.DisconnectedPoll
	w.RecordLatency = s.metrics.recordLatency
	s.worker = w
	s.worker.Start()

	return s, nil
}

// Destroy requests shutdown: the worker exits after at most one in-flight
// command or transaction completes, every remaining queued command and
// open/ready transaction is completed as cancelled, and the adapter is
// disconnected. Safe to call more than once.
func (s *Scheduler) Destroy() { s.worker.Stop() }

func (s *Scheduler) DeviceID() string { return s.deviceID }

func (s *Scheduler) IsRunning() bool { return s.worker.IsRunning() }

// Stats returns the §6.1 stats() snapshot.
func (s *Scheduler) Stats() Stats {
	high, normal, low := s.queues.Lens()
	return Stats{
		HighQueueLen:      high,
		NormalQueueLen:    normal,
		LowQueueLen:       low,
		Processed:         s.worker.Metrics.Processed.Load(),
		Errors:            s.worker.Metrics.Errors.Load(),
		ReconnectAttempts: s.conn.ReconnectAttempts(),
		Connected:         s.conn.Connected(),
		Processing:        s.worker.Processing(),
		ActiveTxnID:       s.worker.ActiveTxnID(),
		InTxnMode:         s.worker.InTxnMode(),
	}
}

// LatencyStats is a diagnostics-only extension beyond §6.1, generalized
// from the teacher's latency histogram.
func (s *Scheduler) LatencyStats() LatencySnapshot { return s.metrics.snapshot() }

func (s *Scheduler) cloneParams(kind CommandKind, params any) any {
	if cloner, ok := s.adapter.(ParamCloner); ok {
		return cloner.CloneParams(kind, params)
	}
	return params
}

// SubmitBlocking enqueues a command and waits for its result. Enqueue
// itself is non-blocking (an immediately-full target queue fails fast with
// queue-full); timeout then bounds the wait for completion — per §5, if it
// elapses the caller gets CodeTimeout but the envelope may still execute
// later, and the caller's own result variable (the returned Result here,
// since nothing is written until the channel fires) is never touched after
// the timeout fires.
func (s *Scheduler) SubmitBlocking(ctx context.Context, kind CommandKind, params any, priority Priority, timeout time.Duration) (Result, error) {
	params = s.cloneParams(kind, params)
	cmd := interfaces.NewCommand(nextCommandID(), kind, priority, params, 0)
	recv := cmd.Blocking()

	if err := s.queues.Enqueue(cmd, 0); err != nil {
		return Result{}, err
	}

	if timeout < 0 {
		select {
		case r := <-recv:
			return r, nil
		case <-ctx.Done():
			return Result{}, NewError("submit-blocking", CodeCancelled, "context cancelled while awaiting completion")
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-recv:
		return r, nil
	case <-timer.C:
		return Result{}, NewError("submit-blocking", CodeTimeout, "completion wait timed out")
	case <-ctx.Done():
		return Result{}, NewError("submit-blocking", CodeCancelled, "context cancelled while awaiting completion")
	}
}

// SubmitAsync enqueues a command and returns immediately with its assigned
// ID (0 on enqueue failure, in which case callback still fires once with
// the enqueue error so the caller's completion accounting stays exact).
func (s *Scheduler) SubmitAsync(kind CommandKind, params any, priority Priority, callback func(Result), user any) int64 {
	params = s.cloneParams(kind, params)
	id := nextCommandID()
	cmd := interfaces.NewCommand(id, kind, priority, params, 0)
	cmd.Async(callback, user)

	if err := s.queues.Enqueue(cmd, 0); err != nil {
		cmd.Complete(Result{Err: err})
		return 0
	}
	return id
}

// Cancel cancels a single queued (not yet executing) command by ID.
func (s *Scheduler) Cancel(id int64) bool { return s.queues.CancelByID(id) }

// CancelByKind cancels every queued command of the given kind.
func (s *Scheduler) CancelByKind(kind CommandKind) int { return s.queues.CancelByKind(kind) }

// CancelByAge cancels every queued command older than age.
func (s *Scheduler) CancelByAge(age time.Duration) int { return s.queues.CancelByAge(age) }

// CancelAll cancels every currently queued command.
func (s *Scheduler) CancelAll() int { return s.queues.CancelAll() }

// HasKind scans all three priority queues for a pending command of the
// given kind. See DESIGN.md's Open Question decisions for why this
// actually scans rather than approximating via "normal queue non-empty".
func (s *Scheduler) HasKind(kind CommandKind) bool { return s.queues.HasKind(kind) }

// IsInTransaction reports whether the worker is currently running a
// transaction.
func (s *Scheduler) IsInTransaction() bool { return s.worker.InTxnMode() }

// TransactionHandle is the caller-facing handle for an open or committed
// transaction, returned by BeginTransaction.
type TransactionHandle struct {
	t        *txn.Transaction
	registry *txn.Registry
}

// BeginTransaction opens a new transaction on this scheduler.
func (s *Scheduler) BeginTransaction() *TransactionHandle {
	return &TransactionHandle{t: s.registry.Begin(), registry: s.registry}
}

// Add appends a command to the transaction; only legal while open.
func (h *TransactionHandle) Add(kind CommandKind, params any) (int, error) {
	return h.t.Add(kind, params)
}

// SetAbortOnError sets whether a failed command stops the remaining
// transaction commands (marking them cancelled) instead of continuing.
// Default is continue-on-error.
func (h *TransactionHandle) SetAbortOnError(v bool) error { return h.t.SetAbortOnError(v) }

func (h *TransactionHandle) SetPriority(p Priority) error { return h.t.SetPriority(p) }

func (h *TransactionHandle) SetTimeout(d time.Duration) error { return h.t.SetTimeout(d) }

// Commit moves the transaction into the scheduler's execution-eligible
// pool. callback receives the final success/failure tallies and the full
// results array once the transaction runs to completion, timeout, or
// abort. Go closures replace the source's separate opaque "user" pointer —
// callers capture whatever context they need directly in callback.
func (h *TransactionHandle) Commit(callback func(success, failure int, results []Result)) error {
	return h.registry.Commit(h.t.ID, callback)
}

// Cancel cancels the transaction; legal while open or committed-but-not-
// yet-executing, rejected with invalid-state once execution has started.
func (h *TransactionHandle) Cancel() error { return txn.CancelTransaction(h.t) }
