// Package tempcontroller drives a Modbus-RTU PID temperature controller:
// setpoint, process value readback, ramp rate, and alarm status, over
// github.com/goburrow/modbus — a second, independent Modbus device family
// alongside powersupply, with its own register map and slave address.
package tempcontroller

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

const (
	CommandSetSetpoint interfaces.CommandKind = "set-setpoint"
	CommandSetRampRate interfaces.CommandKind = "set-ramp-rate"
	CommandReadStatus  interfaces.CommandKind = "read-status"
	CommandClearAlarm  interfaces.CommandKind = "clear-alarm"
)

const (
	regSetpoint   = 0x0000 // tenths of a degree
	regRampRate   = 0x0001 // tenths of a degree per minute
	regAlarmAck   = 0x0002 // write-1-to-clear
	regPV         = 0x0010 // tenths of a degree, process value readback
	regSPReadback = 0x0011
	regAlarmFlag  = 0x0012
)

// Status is the payload for CommandReadStatus.
type Status struct {
	ProcessValueC float64
	SetpointC     float64
	AlarmActive   bool
}

// Adapter drives one temperature controller over a serial Modbus-RTU link.
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
		return interfaces.Wrap("tempcontroller.connect", interfaces.CodeCommunicationFailed, err)
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
	client, connected := a.client, a.connected
	a.mu.Unlock()
	if !connected {
		return interfaces.ErrDeviceNotConnected
	}
	if _, err := client.ReadHoldingRegisters(regPV, 1); err != nil {
		return interfaces.Wrap("tempcontroller.test-connection", interfaces.CodeCommunicationFailed, err)
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
	if kind == CommandSetSetpoint {
		return 20 * time.Millisecond
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
	case CommandSetSetpoint:
		celsius, ok := params.(float64)
		if !ok {
			return nil, interfaces.New("tempcontroller.execute", interfaces.CodeInvalidParameter, "expected float64 celsius")
		}
		if _, err := client.WriteSingleRegister(regSetpoint, uint16(celsius*10)); err != nil {
			return nil, interfaces.Wrap("tempcontroller.set-setpoint", interfaces.CodeCommunicationFailed, err)
		}
		return nil, nil

	case CommandSetRampRate:
		degPerMin, ok := params.(float64)
		if !ok {
			return nil, interfaces.New("tempcontroller.execute", interfaces.CodeInvalidParameter, "expected float64 degrees/min")
		}
		if _, err := client.WriteSingleRegister(regRampRate, uint16(degPerMin*10)); err != nil {
			return nil, interfaces.Wrap("tempcontroller.set-ramp-rate", interfaces.CodeCommunicationFailed, err)
		}
		return nil, nil

	case CommandClearAlarm:
		if _, err := client.WriteSingleRegister(regAlarmAck, 1); err != nil {
			return nil, interfaces.Wrap("tempcontroller.clear-alarm", interfaces.CodeCommunicationFailed, err)
		}
		return nil, nil

	case CommandReadStatus:
		return a.readStatus(client)

	default:
		return nil, interfaces.New("tempcontroller.execute", interfaces.CodeInvalidParameter, "unknown command kind")
	}
}

func (a *Adapter) readStatus(client modbus.Client) (Status, error) {
	raw, err := client.ReadHoldingRegisters(regPV, 3)
	if err != nil {
		return Status{}, interfaces.Wrap("tempcontroller.read-status", interfaces.CodeCommunicationFailed, err)
	}
	if len(raw) < 6 {
		return Status{}, interfaces.New("tempcontroller.read-status", interfaces.CodeInvalidVariableCount, "short register read")
	}
	pvRaw := binary.BigEndian.Uint16(raw[0:2])
	spRaw := binary.BigEndian.Uint16(raw[2:4])
	alarmRaw := binary.BigEndian.Uint16(raw[4:6])

	return Status{
		ProcessValueC: float64(int16(pvRaw)) / 10,
		SetpointC:     float64(int16(spRaw)) / 10,
		AlarmActive:   alarmRaw != 0,
	}, nil
}
