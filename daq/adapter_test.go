package daq

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort is an in-memory io.ReadWriter: Read serves canned response lines
// in order, Write records what the adapter sent.
type fakePort struct {
	responses *strings.Reader
	written   bytes.Buffer
	closed    bool
}

func newFakePort(responses string) *fakePort {
	return &fakePort{responses: strings.NewReader(responses)}
}

func (f *fakePort) Read(p []byte) (int, error)  { return f.responses.Read(p) }
func (f *fakePort) Write(p []byte) (int, error) { return f.written.Write(p) }
func (f *fakePort) Close() error                { f.closed = true; return nil }

func withFakePort(responses string) (*Adapter, *fakePort) {
	fp := newFakePort(responses)
	a := NewAdapter("/dev/fake", 9600)
	a.openPort = func(string, int, time.Duration) (port, error) { return fp, nil }
	return a, fp
}

func TestAdapterReadChannel(t *testing.T) {
	a, fp := withFakePort("1.250\n")
	require.NoError(t, a.Connect(context.Background()))

	payload, err := a.Execute(context.Background(), CommandReadChannel, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, payload.(float64), 1e-9)
	assert.Equal(t, "READ 3\n", fp.written.String())
}

func TestAdapterReadAll(t *testing.T) {
	a, _ := withFakePort("0.1\n0.2\n0.3\n")
	require.NoError(t, a.Connect(context.Background()))

	payload, err := a.Execute(context.Background(), CommandReadAll, 3)
	require.NoError(t, err)
	readings := payload.([]float64)
	require.Len(t, readings, 3)
	assert.InDelta(t, 0.1, readings[0], 1e-9)
	assert.InDelta(t, 0.2, readings[1], 1e-9)
	assert.InDelta(t, 0.3, readings[2], 1e-9)
}

func TestAdapterReadChannelCorruptedData(t *testing.T) {
	a, _ := withFakePort("not-a-number\n")
	require.NoError(t, a.Connect(context.Background()))

	_, err := a.Execute(context.Background(), CommandReadChannel, 0)
	assert.Error(t, err)
}

func TestAdapterDisconnectClosesPort(t *testing.T) {
	a, fp := withFakePort("")
	require.NoError(t, a.Connect(context.Background()))
	a.Disconnect(context.Background())
	assert.True(t, fp.closed)
	assert.False(t, a.IsConnected())
}

func TestAdapterExecuteWithoutConnectFails(t *testing.T) {
	a := NewAdapter("/dev/fake", 9600)
	_, err := a.Execute(context.Background(), CommandReadChannel, 0)
	assert.Error(t, err)
}
