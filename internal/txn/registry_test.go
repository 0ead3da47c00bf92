package txn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

func TestRegistryBeginAddsToOpenSet(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	tr := r.Begin()
	_, ok := r.open[tr.ID]
	assert.True(t, ok)
}

func TestRegistryCommitMovesOutOfOpenIntoReady(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	tr := r.Begin()
	_, _ = tr.Add("a", nil)

	require.NoError(t, r.Commit(tr.ID, nil))
	_, stillOpen := r.open[tr.ID]
	assert.False(t, stillOpen)

	next := r.NextReady()
	require.NotNil(t, next)
	assert.Equal(t, tr.ID, next.ID)
}

func TestRegistryCommitUnknownHandleFails(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	err := r.Commit(999, nil)
	require.Error(t, err)
	assert.True(t, interfaces.IsCode(err, interfaces.CodeInvalidParameter))
}

func TestRegistryCommitTwiceFails(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	tr := r.Begin()
	require.NoError(t, r.Commit(tr.ID, nil))
	err := r.Commit(tr.ID, nil)
	require.Error(t, err)
}

func TestRegistryCommitFullReadyChannelFails(t *testing.T) {
	r := NewRegistry(8, time.Second, 1)
	a := r.Begin()
	b := r.Begin()
	require.NoError(t, r.Commit(a.ID, nil))
	err := r.Commit(b.ID, nil)
	require.Error(t, err)
	assert.True(t, interfaces.IsCode(err, interfaces.CodeQueueFull))
}

func TestRegistryCancelOpenTransaction(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	tr := r.Begin()
	_, _ = tr.Add("a", nil)
	require.NoError(t, r.Cancel(tr.ID))
	_, stillOpen := r.open[tr.ID]
	assert.False(t, stillOpen)
	assert.True(t, tr.cancelled)
}

func TestRegistryCancelUnknownFails(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	err := r.Cancel(999)
	assert.Error(t, err)
}

func TestRegistryNextReadySkipsCancelledCommitted(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	tr := r.Begin()
	require.NoError(t, r.Commit(tr.ID, nil))
	require.NoError(t, CancelTransaction(tr))

	assert.Nil(t, r.NextReady())
}

func TestRegistryNextReadyMarksExecuting(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	tr := r.Begin()
	require.NoError(t, r.Commit(tr.ID, nil))

	next := r.NextReady()
	require.NotNil(t, next)
	assert.Equal(t, stateExecuting, next.state)
}

func TestRegistryDrainCancelsOpenAndReady(t *testing.T) {
	r := NewRegistry(8, time.Second, 4)
	open := r.Begin()
	ready := r.Begin()
	require.NoError(t, r.Commit(ready.ID, nil))

	r.Drain()
	assert.True(t, open.cancelled)
	assert.True(t, ready.cancelled)
	assert.Len(t, r.open, 0)
	assert.Nil(t, r.NextReady())
}
