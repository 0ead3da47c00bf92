package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// connState is the explicit sum type from Design Note 4:
// Disconnected{next_attempt} | Connecting | Connected | Failed{retries},
// rather than a bare bool plus a timestamp.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateFailed
)

// ConnectionSupervisor owns one device's connection lifecycle: the initial
// connect attempt at worker startup, reconnect scheduling with exponential
// backoff, and the demotion to disconnected on a transport error during
// command execution.
type ConnectionSupervisor struct {
	base        time.Duration
	cap         time.Duration
	exponentCap int

	mu          sync.Mutex
	state       connState
	retries     int
	nextAttempt time.Time

	// connected mirrors state == stateConnected as a lock-free read, per
	// §5's "connected flag... atomic word readable without locks".
	connected  atomic.Bool
	reconnects atomic.Uint64
}

func NewConnectionSupervisor(base, cap time.Duration, exponentCap int) *ConnectionSupervisor {
	return &ConnectionSupervisor{
		base:        base,
		cap:         cap,
		exponentCap: exponentCap,
		state:       stateDisconnected,
	}
}

func (c *ConnectionSupervisor) Connected() bool { return c.connected.Load() }

func (c *ConnectionSupervisor) ReconnectAttempts() uint64 { return c.reconnects.Load() }

// ReconnectDue reports whether the worker should attempt a reconnect now:
// not connected, and the scheduled deadline has passed.
func (c *ConnectionSupervisor) ReconnectDue() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateConnected {
		return false
	}
	return !time.Now().Before(c.nextAttempt)
}

// InitialConnect runs once when the worker starts. Failure is non-fatal —
// the device stays disconnected and the worker's reconnect loop takes over.
func (c *ConnectionSupervisor) InitialConnect(ctx context.Context, a interfaces.Adapter, log interfaces.Logger) {
	c.mu.Lock()
	c.state = stateConnecting
	c.mu.Unlock()

	if err := a.Connect(ctx); err != nil {
		log.Warn("initial connect failed", "err", err)
		c.mu.Lock()
		c.state = stateFailed
		c.nextAttempt = time.Now().Add(c.base)
		c.mu.Unlock()
		return
	}

	if err := a.TestConnection(ctx); err != nil {
		log.Warn("post-connect test_connection failed, continuing connected", "err", err)
	}

	c.mu.Lock()
	c.state = stateConnected
	c.retries = 0
	c.mu.Unlock()
	c.connected.Store(true)
	log.Info("connected")
}

// Reconnect performs one reconnect attempt, recording the next attempt's
// exponential-backoff deadline on failure: base * 2^min(retries-1,
// exponentCap), capped at cap.
func (c *ConnectionSupervisor) Reconnect(ctx context.Context, a interfaces.Adapter, log interfaces.Logger) {
	c.mu.Lock()
	c.retries++
	retries := c.retries
	c.mu.Unlock()
	c.reconnects.Add(1)

	if err := a.Connect(ctx); err == nil {
		c.mu.Lock()
		c.state = stateConnected
		c.retries = 0
		c.mu.Unlock()
		c.connected.Store(true)
		log.Info("reconnected", "attempt", retries)
		return
	} else {
		log.Warn("reconnect attempt failed", "attempt", retries, "err", err)
	}

	exp := retries - 1
	if exp > c.exponentCap {
		exp = c.exponentCap
	}
	delay := c.base * time.Duration(int64(1)<<uint(exp))
	if delay > c.cap {
		delay = c.cap
	}

	c.mu.Lock()
	c.state = stateFailed
	c.nextAttempt = time.Now().Add(delay)
	c.mu.Unlock()
}

// MarkDisconnected demotes the device to disconnected and arms a reconnect
// at the base delay, per §4.4: "a result code of communication-failed or
// timeout transitions the device to disconnected and arms a reconnect with
// the base delay." The retry counter is left untouched so a mid-stream
// failure doesn't quietly restart backoff from zero.
func (c *ConnectionSupervisor) MarkDisconnected() {
	c.mu.Lock()
	c.state = stateDisconnected
	c.nextAttempt = time.Now().Add(c.base)
	c.mu.Unlock()
	c.connected.Store(false)
}

// Disconnect tears down the link once, at shutdown. Safe to call when
// already disconnected.
func (c *ConnectionSupervisor) Disconnect(ctx context.Context, a interfaces.Adapter) {
	a.Disconnect(ctx)
	c.mu.Lock()
	c.state = stateDisconnected
	c.mu.Unlock()
	c.connected.Store(false)
}
