package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// fakeAdapter is a fully scriptable interfaces.Adapter for queue-package
// tests (connection supervisor and worker loop).
type fakeAdapter struct {
	mu sync.Mutex

	connectErrs []error // consumed one per Connect call; last repeats
	connectN    int

	testConnErr error
	connected   atomic.Bool

	executeFn func(ctx context.Context, kind interfaces.CommandKind, params any) (any, error)
	delay     time.Duration

	connectCalls    atomic.Int64
	disconnectCalls atomic.Int64
}

func (f *fakeAdapter) Connect(ctx context.Context) error {
	f.connectCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.connectN
	if idx >= len(f.connectErrs) {
		idx = len(f.connectErrs) - 1
	}
	f.connectN++
	var err error
	if idx >= 0 {
		err = f.connectErrs[idx]
	}
	if err == nil {
		f.connected.Store(true)
	}
	return err
}

func (f *fakeAdapter) Disconnect(ctx context.Context) {
	f.disconnectCalls.Add(1)
	f.connected.Store(false)
}

func (f *fakeAdapter) TestConnection(ctx context.Context) error { return f.testConnErr }

func (f *fakeAdapter) IsConnected() bool { return f.connected.Load() }

func (f *fakeAdapter) Execute(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
	if f.executeFn != nil {
		return f.executeFn(ctx, kind, params)
	}
	return nil, nil
}

func (f *fakeAdapter) CommandName(kind interfaces.CommandKind) string { return string(kind) }
func (f *fakeAdapter) CommandDelay(kind interfaces.CommandKind) time.Duration { return f.delay }
