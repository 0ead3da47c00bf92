package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

func newCmd(kind interfaces.CommandKind, priority interfaces.Priority) *interfaces.Command {
	return interfaces.NewCommand(time.Now().UnixNano(), kind, priority, nil, 0)
}

func TestPriorityQueuesStrictOrdering(t *testing.T) {
	q := NewPriorityQueues(4, 4, 4)
	require.NoError(t, q.Enqueue(newCmd("low", interfaces.PriorityLow), 0))
	require.NoError(t, q.Enqueue(newCmd("normal", interfaces.PriorityNormal), 0))
	require.NoError(t, q.Enqueue(newCmd("high", interfaces.PriorityHigh), 0))

	assert.Equal(t, interfaces.CommandKind("high"), q.TryDequeue().Kind)
	assert.Equal(t, interfaces.CommandKind("normal"), q.TryDequeue().Kind)
	assert.Equal(t, interfaces.CommandKind("low"), q.TryDequeue().Kind)
	assert.Nil(t, q.TryDequeue())
}

func TestPriorityQueuesEnqueueFullFailsFast(t *testing.T) {
	q := NewPriorityQueues(1, 0, 0)
	require.NoError(t, q.Enqueue(newCmd("a", interfaces.PriorityHigh), 0))
	err := q.Enqueue(newCmd("b", interfaces.PriorityHigh), 0)
	require.Error(t, err)
	assert.True(t, interfaces.IsCode(err, interfaces.CodeQueueFull))
}

func TestPriorityQueuesLens(t *testing.T) {
	q := NewPriorityQueues(4, 4, 4)
	require.NoError(t, q.Enqueue(newCmd("a", interfaces.PriorityHigh), 0))
	require.NoError(t, q.Enqueue(newCmd("b", interfaces.PriorityNormal), 0))
	high, normal, low := q.Lens()
	assert.Equal(t, 1, high)
	assert.Equal(t, 1, normal)
	assert.Equal(t, 0, low)
}

func TestPriorityQueuesHasKindScansAllThree(t *testing.T) {
	q := NewPriorityQueues(4, 4, 4)
	require.NoError(t, q.Enqueue(newCmd("target", interfaces.PriorityLow), 0))
	assert.True(t, q.HasKind("target"))
	assert.False(t, q.HasKind("missing"))
}

func TestPriorityQueuesCancelByID(t *testing.T) {
	q := NewPriorityQueues(4, 4, 4)
	cmd := interfaces.NewCommand(42, "a", interfaces.PriorityNormal, nil, 0)
	require.NoError(t, q.Enqueue(cmd, 0))
	require.NoError(t, q.Enqueue(interfaces.NewCommand(43, "b", interfaces.PriorityNormal, nil, 0), 0))

	assert.True(t, q.CancelByID(42))
	assert.False(t, q.CancelByID(42)) // already gone
	remaining := q.TryDequeue()
	require.NotNil(t, remaining)
	assert.Equal(t, int64(43), remaining.ID)
}

func TestPriorityQueuesCancelByKind(t *testing.T) {
	q := NewPriorityQueues(4, 4, 4)
	require.NoError(t, q.Enqueue(newCmd("a", interfaces.PriorityNormal), 0))
	require.NoError(t, q.Enqueue(newCmd("a", interfaces.PriorityHigh), 0))
	require.NoError(t, q.Enqueue(newCmd("b", interfaces.PriorityLow), 0))

	n := q.CancelByKind("a")
	assert.Equal(t, 2, n)
	remaining := q.TryDequeue()
	require.NotNil(t, remaining)
	assert.Equal(t, interfaces.CommandKind("b"), remaining.Kind)
}

func TestPriorityQueuesCancelByAge(t *testing.T) {
	q := NewPriorityQueues(4, 4, 4)
	old := newCmd("old", interfaces.PriorityNormal)
	old.Born = time.Now().Add(-time.Hour)
	require.NoError(t, q.Enqueue(old, 0))
	require.NoError(t, q.Enqueue(newCmd("new", interfaces.PriorityNormal), 0))

	n := q.CancelByAge(time.Minute)
	assert.Equal(t, 1, n)
	remaining := q.TryDequeue()
	require.NotNil(t, remaining)
	assert.Equal(t, interfaces.CommandKind("new"), remaining.Kind)
}

func TestPriorityQueuesCancelAll(t *testing.T) {
	q := NewPriorityQueues(4, 4, 4)
	require.NoError(t, q.Enqueue(newCmd("a", interfaces.PriorityHigh), 0))
	require.NoError(t, q.Enqueue(newCmd("b", interfaces.PriorityNormal), 0))
	require.NoError(t, q.Enqueue(newCmd("c", interfaces.PriorityLow), 0))

	assert.Equal(t, 3, q.CancelAll())
	assert.Nil(t, q.TryDequeue())
}
