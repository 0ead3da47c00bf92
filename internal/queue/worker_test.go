package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjorgensen/labctl/internal/interfaces"
	"github.com/kjorgensen/labctl/internal/txn"
)

func newTestWorker(t *testing.T, adapter interfaces.Adapter) (*Worker, *PriorityQueues, *txn.Registry) {
	t.Helper()
	queues := NewPriorityQueues(8, 8, 8)
	registry := txn.NewRegistry(16, time.Second, 8)
	conn := NewConnectionSupervisor(5*time.Millisecond, 50*time.Millisecond, 5)
	w := NewWorker("dev", adapter, queues, registry, conn, interfaces.NopLogger{})
	w.EmptyQueuePoll = time.Millisecond
	w.DisconnectedPoll = time.Millisecond
	return w, queues, registry
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within timeout")
}

func TestWorkerReconnectsWhenDisconnected(t *testing.T) {
	a := &fakeAdapter{connectErrs: []error{errors.New("refused"), nil}}
	w, _, _ := newTestWorker(t, a)
	w.Start()
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return a.IsConnected() })
	assert.GreaterOrEqual(t, a.connectCalls.Load(), int64(2))
}

func TestWorkerDrainsStrictPriorityOrder(t *testing.T) {
	var executed []interfaces.CommandKind
	done := make(chan struct{})
	a := &fakeAdapter{}
	a.executeFn = func(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
		executed = append(executed, kind)
		if len(executed) == 3 {
			close(done)
		}
		return nil, nil
	}
	w, queues, _ := newTestWorker(t, a)
	require.NoError(t, queues.Enqueue(newCmd("low", interfaces.PriorityLow), 0))
	require.NoError(t, queues.Enqueue(newCmd("normal", interfaces.PriorityNormal), 0))
	require.NoError(t, queues.Enqueue(newCmd("high", interfaces.PriorityHigh), 0))
	w.Start()
	defer w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for commands to execute")
	}
	require.Len(t, executed, 3)
	assert.Equal(t, []interfaces.CommandKind{"high", "normal", "low"}, executed)
}

func TestWorkerExecuteMarksDisconnectOnTransportError(t *testing.T) {
	a := &fakeAdapter{}
	a.executeFn = func(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
		return nil, interfaces.New("x", interfaces.CodeCommunicationFailed, "link down")
	}
	w, queues, _ := newTestWorker(t, a)
	w.Start()
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return a.IsConnected() })
	cmd := newCmd("cmd", interfaces.PriorityHigh)
	recv := cmd.Blocking()
	require.NoError(t, queues.Enqueue(cmd, 0))

	select {
	case res := <-recv:
		assert.Error(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("command never completed")
	}
	waitFor(t, time.Second, func() bool { return !a.IsConnected() })
}

func TestWorkerRunsTransactionBeforeQueuedCommands(t *testing.T) {
	var order []string
	a := &fakeAdapter{}
	a.executeFn = func(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
		order = append(order, string(kind))
		return nil, nil
	}
	w, queues, registry := newTestWorker(t, a)
	require.NoError(t, queues.Enqueue(newCmd("queued", interfaces.PriorityHigh), 0))

	tx := registry.Begin()
	_, err := tx.Add("txn-cmd", nil)
	require.NoError(t, err)

	completed := make(chan struct{})
	require.NoError(t, registry.Commit(tx.ID, func(success, failure int, results []interfaces.Result) {
		close(completed)
	}))

	w.Start()
	defer w.Stop()

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("transaction never completed")
	}
	waitFor(t, time.Second, func() bool { return len(order) >= 2 })
	require.GreaterOrEqual(t, len(order), 2)
	assert.Equal(t, "txn-cmd", order[0])
}

func TestWorkerTransactionAbortsOnError(t *testing.T) {
	var ran []string
	a := &fakeAdapter{}
	a.executeFn = func(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
		ran = append(ran, string(kind))
		if kind == "fails" {
			return nil, errors.New("boom")
		}
		return nil, nil
	}
	w, _, registry := newTestWorker(t, a)
	tx := registry.Begin()
	require.NoError(t, tx.SetAbortOnError(true))
	_, _ = tx.Add("first", nil)
	_, _ = tx.Add("fails", nil)
	_, _ = tx.Add("never", nil)

	var gotResults []interfaces.Result
	completed := make(chan struct{})
	require.NoError(t, registry.Commit(tx.ID, func(success, failure int, results []interfaces.Result) {
		gotResults = results
		close(completed)
	}))

	w.Start()
	defer w.Stop()

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("transaction never completed")
	}
	assert.Equal(t, []string{"first", "fails"}, ran)
	require.Len(t, gotResults, 3)
	assert.NoError(t, gotResults[0].Err)
	assert.Error(t, gotResults[1].Err)
	assert.Error(t, gotResults[2].Err)
	assert.True(t, interfaces.IsCode(gotResults[2].Err, interfaces.CodeCancelled))
}

func TestWorkerRecordLatencyCalledForCommandsAndTransactions(t *testing.T) {
	a := &fakeAdapter{}
	a.executeFn = func(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
		return nil, nil
	}
	w, queues, registry := newTestWorker(t, a)

	var calls atomic.Int64
	w.RecordLatency = func(d time.Duration) { calls.Add(1) }

	tx := registry.Begin()
	_, _ = tx.Add("txn-cmd", nil)
	txDone := make(chan struct{})
	require.NoError(t, registry.Commit(tx.ID, func(success, failure int, results []interfaces.Result) {
		close(txDone)
	}))
	require.NoError(t, queues.Enqueue(newCmd("standalone", interfaces.PriorityHigh), 0))

	w.Start()
	defer w.Stop()

	select {
	case <-txDone:
	case <-time.After(time.Second):
		t.Fatal("transaction never completed")
	}
	waitFor(t, time.Second, func() bool { return calls.Load() >= 2 })
}

func TestWorkerStopDrainsQueueAndDisconnects(t *testing.T) {
	a := &fakeAdapter{}
	a.executeFn = func(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
		return nil, nil
	}
	w, queues, _ := newTestWorker(t, a)
	w.Start()
	waitFor(t, time.Second, func() bool { return a.IsConnected() })

	cmd := newCmd("late", interfaces.PriorityLow)
	recv := cmd.Blocking()
	require.NoError(t, queues.Enqueue(cmd, 0))

	w.Stop()
	assert.Equal(t, int64(1), a.disconnectCalls.Load())

	select {
	case res := <-recv:
		if res.Err != nil {
			assert.True(t, interfaces.IsCode(res.Err, interfaces.CodeCancelled))
		}
	case <-time.After(100 * time.Millisecond):
	}
}
