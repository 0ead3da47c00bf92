package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
	"github.com/kjorgensen/labctl/internal/txn"
)

// Metrics is the set of atomic counters the worker maintains; Stats() on
// the public Scheduler reads these alongside the queue lengths and
// connection state.
type Metrics struct {
	Processed atomic.Uint64
	Errors    atomic.Uint64
}

// Worker is the single dedicated goroutine per device that owns the wire,
// implementing the scheduling loop from §4.3: reconnect when disconnected,
// otherwise run a ready transaction if one exists, otherwise drain the
// priority queues strictly high-before-normal-before-low.
type Worker struct {
	DeviceID string
	Adapter  interfaces.Adapter
	Queues   *PriorityQueues
	Registry *txn.Registry
	Conn     *ConnectionSupervisor
	Logger   interfaces.Logger
	Metrics  *Metrics

	EmptyQueuePoll   time.Duration
	DisconnectedPoll time.Duration

	// RecordLatency, if set, is called with the wall-clock duration of every
	// Adapter.Execute call (transactional or not). Wired by the scheduler to
	// its own latency histogram; nil is a valid no-op default.
	RecordLatency func(time.Duration)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	shutdown    atomic.Bool
	inTxnMode   atomic.Bool
	processing  atomic.Bool
	activeTxnID atomic.Int64
}

func NewWorker(deviceID string, adapter interfaces.Adapter, queues *PriorityQueues, registry *txn.Registry, conn *ConnectionSupervisor, logger interfaces.Logger) *Worker {
	if logger == nil {
		logger = interfaces.NopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		DeviceID:         deviceID,
		Adapter:          adapter,
		Queues:           queues,
		Registry:         registry,
		Conn:             conn,
		Logger:           logger,
		Metrics:          &Metrics{},
		EmptyQueuePoll:   10 * time.Millisecond,
		DisconnectedPoll: 100 * time.Millisecond,
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() { go w.loop() }

// Stop requests shutdown and waits for the worker to exit after at most one
// in-flight command or transaction completes, then drains every remaining
// queued command and open/ready transaction as cancelled, and disconnects.
func (w *Worker) Stop() {
	if !w.shutdown.CompareAndSwap(false, true) {
		return // already stopped; Stop must be idempotent
	}
	<-w.done

	w.Queues.CancelAll()
	w.Registry.Drain()
	w.Conn.Disconnect(context.Background(), w.Adapter)
	w.cancel()
}

func (w *Worker) IsRunning() bool { return !w.shutdown.Load() }
func (w *Worker) Processing() bool { return w.processing.Load() }
func (w *Worker) InTxnMode() bool   { return w.inTxnMode.Load() }
func (w *Worker) ActiveTxnID() int64 { return w.activeTxnID.Load() }

func (w *Worker) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-w.ctx.Done():
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	w.Conn.InitialConnect(w.ctx, w.Adapter, w.Logger)

	for {
		if w.shutdown.Load() {
			return
		}

		if !w.Conn.Connected() {
			if w.Conn.ReconnectDue() {
				w.Conn.Reconnect(w.ctx, w.Adapter, w.Logger)
			} else {
				w.sleep(w.DisconnectedPoll)
			}
			continue
		}

		if !w.inTxnMode.Load() {
			if t := w.Registry.NextReady(); t != nil {
				w.inTxnMode.Store(true)
				w.activeTxnID.Store(t.ID)
				w.runTransaction(t)
				w.activeTxnID.Store(0)
				w.inTxnMode.Store(false)
				continue
			}
		}

		cmd := w.Queues.TryDequeue()
		if cmd == nil {
			w.sleep(w.EmptyQueuePoll)
			continue
		}
		w.execute(cmd)
	}
}

func isDisconnectingError(err error) bool {
	if err == nil {
		return false
	}
	return interfaces.IsCode(err, interfaces.CodeCommunicationFailed) || interfaces.IsCode(err, interfaces.CodeTimeout)
}

// execute runs one non-transactional command end to end per §4.6: dispatch
// to the adapter, update counters, demote the connection on a transport
// error, deliver completion exactly once, and apply the command's
// post-execution settle delay.
func (w *Worker) execute(cmd *interfaces.Command) {
	w.processing.Store(true)
	defer w.processing.Store(false)

	start := time.Now()
	payload, err := w.Adapter.Execute(w.ctx, cmd.Kind, cmd.Params)
	if w.RecordLatency != nil {
		w.RecordLatency(time.Since(start))
	}
	w.Metrics.Processed.Add(1)
	if err != nil {
		w.Metrics.Errors.Add(1)
		if isDisconnectingError(err) {
			w.Conn.MarkDisconnected()
		}
	}

	cmd.Complete(interfaces.Result{Err: err, Payload: payload})

	if d := w.Adapter.CommandDelay(cmd.Kind); d > 0 {
		w.sleep(d)
	}
}

// runTransaction runs a committed transaction's commands strictly in order
// per §4.5, enforcing the wall-clock timeout and abort-on-error behavior.
func (w *Worker) runTransaction(t *txn.Transaction) {
	w.processing.Store(true)
	defer w.processing.Store(false)

	t.StartExecution()
	cmds := t.Commands()
	n := len(cmds)
	start := t.StartedAt()
	timeout := t.Timeout()
	success, failure := 0, 0

	for i := 0; i < n; i++ {
		if time.Since(start) > timeout {
			for j := i; j < n; j++ {
				t.SetResult(j, interfaces.Result{Err: interfaces.New("txn.run", interfaces.CodeTimeout, "transaction timed out")})
				failure++
			}
			break
		}

		cmd := cmds[i]
		start := time.Now()
		payload, err := w.Adapter.Execute(w.ctx, cmd.Kind, cmd.Params)
		if w.RecordLatency != nil {
			w.RecordLatency(time.Since(start))
		}
		t.SetResult(i, interfaces.Result{Err: err, Payload: payload})
		w.Metrics.Processed.Add(1)

		if err != nil {
			w.Metrics.Errors.Add(1)
			failure++
			if isDisconnectingError(err) {
				w.Conn.MarkDisconnected()
			}
			if t.AbortOnError() {
				for j := i + 1; j < n; j++ {
					t.SetResult(j, interfaces.Result{Err: interfaces.New("txn.run", interfaces.CodeCancelled, "aborted by a prior command's failure")})
					failure++
				}
				break
			}
		} else {
			success++
		}

		if d := w.Adapter.CommandDelay(cmd.Kind); d > 0 {
			w.sleep(d)
		}
	}

	t.Finish(success, failure)
	w.Registry.Remove(t.ID)
}
