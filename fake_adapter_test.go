package labctl

import (
	"context"
	"sync/atomic"
	"time"
)

// fakeAdapter is a fully scriptable Adapter for root-package tests
// (scheduler and fleet lifecycle, submission, cancellation, transactions).
type fakeAdapter struct {
	connected atomic.Bool
	executeFn func(ctx context.Context, kind CommandKind, params any) (any, error)
	delay     time.Duration

	executeCalls atomic.Int64
}

func (f *fakeAdapter) Connect(ctx context.Context) error {
	f.connected.Store(true)
	return nil
}

func (f *fakeAdapter) Disconnect(ctx context.Context) { f.connected.Store(false) }

func (f *fakeAdapter) TestConnection(ctx context.Context) error { return nil }

func (f *fakeAdapter) IsConnected() bool { return f.connected.Load() }

func (f *fakeAdapter) Execute(ctx context.Context, kind CommandKind, params any) (any, error) {
	f.executeCalls.Add(1)
	if f.executeFn != nil {
		return f.executeFn(ctx, kind, params)
	}
	return nil, nil
}

func (f *fakeAdapter) CommandName(kind CommandKind) string { return string(kind) }

func (f *fakeAdapter) CommandDelay(kind CommandKind) time.Duration { return f.delay }

func testTunables() *Tunables {
	t := DefaultTunables()
	t.EmptyQueuePoll = time.Millisecond
	t.DisconnectedPoll = time.Millisecond
	t.ReconnectBase = 5 * time.Millisecond
	return &t
}
