// Package powersupply drives a Modbus-RTU programmable DC power supply:
// set/read voltage and current setpoints, output enable, and fault status,
// over github.com/goburrow/modbus the way the rest of this module's device
// families use it.
package powersupply

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// CommandKind values this adapter recognizes.
const (
	CommandSetVoltage  interfaces.CommandKind = "set-voltage"
	CommandSetCurrent  interfaces.CommandKind = "set-current"
	CommandSetOutput   interfaces.CommandKind = "set-output"
	CommandReadStatus  interfaces.CommandKind = "read-status"
)

// Register map (holding registers, scaled to millivolts/milliamps).
const (
	regVoltageSetpoint = 0x0000
	regCurrentSetpoint = 0x0001
	regOutputEnable    = 0x0002
	regVoltageReadback = 0x0010
	regCurrentReadback = 0x0011
	regOutputReadback  = 0x0012
	regFaultFlags      = 0x0013
)

// Status is the payload for CommandReadStatus.
type Status struct {
	VoltageVolts float64
	CurrentAmps  float64
	OutputOn     bool
	Fault        bool
}

// Adapter drives one power supply unit over a serial Modbus-RTU link.
type Adapter struct {
	ComPort  string
	BaudRate int
	SlaveID  byte
	Timeout  time.Duration

	mu        sync.Mutex
	handler   *modbus.RTUClientHandler
	client    modbus.Client
	connected bool
}

// NewAdapter constructs an adapter; Connect opens the serial port.
func NewAdapter(comPort string, baudRate int, slaveID byte) *Adapter {
	return &Adapter{ComPort: comPort, BaudRate: baudRate, SlaveID: slaveID, Timeout: time.Second}
}

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	handler := modbus.NewRTUClientHandler(a.ComPort)
	handler.BaudRate = a.BaudRate
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.SlaveId = a.SlaveID
	handler.Timeout = a.Timeout

	if err := handler.Connect(); err != nil {
		return interfaces.Wrap("powersupply.connect", interfaces.CodeCommunicationFailed, err)
	}

	a.handler = handler
	a.client = modbus.NewClient(handler)
	a.connected = true
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handler != nil {
		_ = a.handler.Close()
	}
	a.connected = false
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	a.mu.Lock()
	client := a.client
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return interfaces.ErrDeviceNotConnected
	}
	_, err := client.ReadHoldingRegisters(regVoltageReadback, 1)
	if err != nil {
		return interfaces.Wrap("powersupply.test-connection", interfaces.CodeCommunicationFailed, err)
	}
	return nil
}

func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Adapter) CommandName(kind interfaces.CommandKind) string { return string(kind) }

func (a *Adapter) CommandDelay(kind interfaces.CommandKind) time.Duration {
	if kind == CommandSetOutput {
		return 50 * time.Millisecond
	}
	return 0
}

func (a *Adapter) Execute(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return nil, interfaces.ErrDeviceNotConnected
	}

	switch kind {
	case CommandSetVoltage:
		volts, ok := params.(float64)
		if !ok {
			return nil, interfaces.New("powersupply.execute", interfaces.CodeInvalidParameter, "expected float64 volts")
		}
		return nil, writeScaledRegister(client, regVoltageSetpoint, volts, 1000)

	case CommandSetCurrent:
		amps, ok := params.(float64)
		if !ok {
			return nil, interfaces.New("powersupply.execute", interfaces.CodeInvalidParameter, "expected float64 amps")
		}
		return nil, writeScaledRegister(client, regCurrentSetpoint, amps, 1000)

	case CommandSetOutput:
		on, ok := params.(bool)
		if !ok {
			return nil, interfaces.New("powersupply.execute", interfaces.CodeInvalidParameter, "expected bool")
		}
		val := uint16(0)
		if on {
			val = 1
		}
		if _, err := client.WriteSingleRegister(regOutputEnable, val); err != nil {
			return nil, interfaces.Wrap("powersupply.set-output", interfaces.CodeCommunicationFailed, err)
		}
		return nil, nil

	case CommandReadStatus:
		return a.readStatus(client)

	default:
		return nil, interfaces.New("powersupply.execute", interfaces.CodeInvalidParameter, "unknown command kind")
	}
}

func (a *Adapter) readStatus(client modbus.Client) (Status, error) {
	raw, err := client.ReadHoldingRegisters(regVoltageReadback, 3)
	if err != nil {
		return Status{}, interfaces.Wrap("powersupply.read-status", interfaces.CodeCommunicationFailed, err)
	}
	if len(raw) < 6 {
		return Status{}, interfaces.New("powersupply.read-status", interfaces.CodeInvalidVariableCount, "short register read")
	}
	voltageRaw := binary.BigEndian.Uint16(raw[0:2])
	currentRaw := binary.BigEndian.Uint16(raw[2:4])
	outputRaw := binary.BigEndian.Uint16(raw[4:6])

	faultRaw, err := client.ReadHoldingRegisters(regFaultFlags, 1)
	if err != nil {
		return Status{}, interfaces.Wrap("powersupply.read-status", interfaces.CodeCommunicationFailed, err)
	}

	return Status{
		VoltageVolts: float64(voltageRaw) / 1000,
		CurrentAmps:  float64(currentRaw) / 1000,
		OutputOn:     outputRaw != 0,
		Fault:        len(faultRaw) >= 2 && binary.BigEndian.Uint16(faultRaw) != 0,
	}, nil
}

func writeScaledRegister(client modbus.Client, addr uint16, value float64, scale int) error {
	scaled := uint16(value * float64(scale))
	if _, err := client.WriteSingleRegister(addr, scaled); err != nil {
		return interfaces.Wrap("powersupply.write-register", interfaces.CodeCommunicationFailed, err)
	}
	return nil
}
