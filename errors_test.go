package labctl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorCarriesOpAndCode(t *testing.T) {
	err := NewError("scheduler.enqueue", CodeQueueFull, "queue is full")
	assert.Equal(t, "scheduler.enqueue", err.Op)
	assert.Equal(t, CodeQueueFull, err.Code)
	assert.Contains(t, err.Error(), "queue is full")
}

func TestNewDeviceErrorCarriesDeviceID(t *testing.T) {
	err := NewDeviceError("adapter.connect", CodeDeviceNotConnected, "dev-1", "no response")
	assert.Equal(t, "dev-1", err.DeviceID)
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("bus timeout")
	err := WrapError("adapter.execute", CodeCommunicationFailed, cause)
	assert.True(t, errors.Is(err, cause))
}

func TestIsCodeMatchesAndMisses(t *testing.T) {
	err := NewError("x", CodeTimeout, "timed out")
	assert.True(t, IsCode(err, CodeTimeout))
	assert.False(t, IsCode(err, CodeQueueFull))
	assert.False(t, IsCode(nil, CodeTimeout))
}

func TestSentinelErrorsMatchViaIsCode(t *testing.T) {
	assert.True(t, IsCode(ErrTimeout, CodeTimeout))
	assert.True(t, IsCode(ErrCommunicationFailed, CodeCommunicationFailed))
	assert.True(t, IsCode(ErrCancelled, CodeCancelled))
	assert.True(t, IsCode(ErrQueueFull, CodeQueueFull))
	assert.True(t, IsCode(ErrInvalidState, CodeInvalidState))
	assert.True(t, IsCode(ErrDeviceNotConnected, CodeDeviceNotConnected))
}
