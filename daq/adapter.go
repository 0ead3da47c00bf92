// Package daq drives a simple line-oriented serial data-acquisition unit:
// ASCII "READ <channel>\n" commands answered with a single voltage reading
// per line, over github.com/tarm/serial.
package daq

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

const (
	// CommandReadChannel reads one ADC channel. Params is an int channel
	// index; the result payload is a float64 volts reading.
	CommandReadChannel interfaces.CommandKind = "read-channel"
	// CommandReadAll reads every channel up to params (an int count). The
	// result payload is a []float64 of volts readings, index == channel.
	CommandReadAll interfaces.CommandKind = "read-all"
)

// port is the minimal serial.Port surface the adapter depends on, so tests
// can inject an in-memory fake.
type port interface {
	io.ReadWriter
	Close() error
}

// Adapter drives one DAQ unit over a serial link.
type Adapter struct {
	ComPort  string
	BaudRate int
	Timeout  time.Duration

	mu        sync.Mutex
	port      port
	reader    *bufio.Reader
	connected bool

	openPort func(comPort string, baudRate int, timeout time.Duration) (port, error)
}

func NewAdapter(comPort string, baudRate int) *Adapter {
	return &Adapter{ComPort: comPort, BaudRate: baudRate, Timeout: 2 * time.Second, openPort: openSerialPort}
}

func openSerialPort(comPort string, baudRate int, timeout time.Duration) (port, error) {
	return serial.OpenPort(&serial.Config{Name: comPort, Baud: baudRate, ReadTimeout: timeout})
}

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	open := a.openPort
	if open == nil {
		open = openSerialPort
	}
	p, err := open(a.ComPort, a.BaudRate, a.Timeout)
	if err != nil {
		return interfaces.Wrap("daq.connect", interfaces.CodeCommunicationFailed, err)
	}
	a.port = p
	a.reader = bufio.NewReader(p)
	a.connected = true
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.port != nil {
		_ = a.port.Close()
	}
	a.connected = false
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return interfaces.ErrDeviceNotConnected
	}
	return nil
}

func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Adapter) CommandName(kind interfaces.CommandKind) string { return string(kind) }

func (a *Adapter) CommandDelay(kind interfaces.CommandKind) time.Duration { return 0 }

func (a *Adapter) Execute(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
	a.mu.Lock()
	p, reader := a.port, a.reader
	a.mu.Unlock()
	if p == nil {
		return nil, interfaces.ErrDeviceNotConnected
	}

	switch kind {
	case CommandReadChannel:
		channel, ok := params.(int)
		if !ok {
			return nil, interfaces.New("daq.execute", interfaces.CodeInvalidParameter, "expected int channel")
		}
		return readChannel(p, reader, channel)

	case CommandReadAll:
		count, ok := params.(int)
		if !ok {
			return nil, interfaces.New("daq.execute", interfaces.CodeInvalidParameter, "expected int channel count")
		}
		readings := make([]float64, count)
		for ch := 0; ch < count; ch++ {
			v, err := readChannel(p, reader, ch)
			if err != nil {
				return nil, err
			}
			readings[ch] = v
		}
		return readings, nil

	default:
		return nil, interfaces.New("daq.execute", interfaces.CodeInvalidParameter, "unknown command kind")
	}
}

func readChannel(p port, reader *bufio.Reader, channel int) (float64, error) {
	if _, err := fmt.Fprintf(p, "READ %d\n", channel); err != nil {
		return 0, interfaces.Wrap("daq.read-channel", interfaces.CodeCommunicationFailed, err)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return 0, interfaces.Wrap("daq.read-channel", interfaces.CodeCommunicationFailed, err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, interfaces.Wrap("daq.read-channel", interfaces.CodeDataCorrupted, err)
	}
	return value, nil
}
