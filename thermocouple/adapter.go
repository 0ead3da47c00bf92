// Package thermocouple converts a millivolt reading from an already-wired
// voltage source into a temperature. It is a thin shim: all the actual wire
// protocol lives behind the injected Driver (typically one channel of a
// daq.Adapter running under its own scheduler) — this package only knows
// about thermocouple linearization.
package thermocouple

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// CommandReadTemperature is the only command this adapter recognizes.
// Params are unused (nil); the result payload is a float64 degrees C.
const CommandReadTemperature interfaces.CommandKind = "read-temperature"

// Driver is the minimal capability a thermocouple adapter needs from
// whatever hardware produces the raw junction voltage.
type Driver interface {
	ReadMillivolts(ctx context.Context, channel int) (float64, error)
}

// Type selects the thermocouple's Seebeck linearization. This module uses a
// single-slope linear approximation rather than the full NIST polynomial
// tables — adequate for the 0-200C range these instruments operate in, and
// a deliberate simplification over exact standards-grade linearization.
type Type int

const (
	TypeK Type = iota
	TypeJ
	TypeT
)

// sensitivityMvPerC is each type's approximate average Seebeck coefficient
// in mV/degC over a moderate temperature range.
var sensitivityMvPerC = map[Type]float64{
	TypeK: 0.041,
	TypeJ: 0.052,
	TypeT: 0.040,
}

// Adapter drives one thermocouple channel through an injected Driver.
type Adapter struct {
	Driver           Driver
	Channel          int
	ThermocoupleType Type
	ColdJunctionC    float64

	connected atomic.Bool
}

func NewAdapter(driver Driver, channel int, tcType Type, coldJunctionC float64) *Adapter {
	return &Adapter{Driver: driver, Channel: channel, ThermocoupleType: tcType, ColdJunctionC: coldJunctionC}
}

// Connect just flips a readiness flag: the Driver's own connection
// lifecycle (e.g. a daq.Adapter's serial link) is managed by whatever
// scheduler owns it, independently of this adapter.
func (a *Adapter) Connect(ctx context.Context) error {
	a.connected.Store(true)
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) { a.connected.Store(false) }

func (a *Adapter) TestConnection(ctx context.Context) error {
	if !a.connected.Load() {
		return interfaces.ErrDeviceNotConnected
	}
	return nil
}

func (a *Adapter) IsConnected() bool { return a.connected.Load() }

func (a *Adapter) CommandName(kind interfaces.CommandKind) string { return string(kind) }

func (a *Adapter) CommandDelay(kind interfaces.CommandKind) time.Duration { return 0 }

func (a *Adapter) Execute(ctx context.Context, kind interfaces.CommandKind, params any) (any, error) {
	if !a.connected.Load() {
		return nil, interfaces.ErrDeviceNotConnected
	}
	if kind != CommandReadTemperature {
		return nil, interfaces.New("thermocouple.execute", interfaces.CodeInvalidParameter, "unknown command kind")
	}

	mv, err := a.Driver.ReadMillivolts(ctx, a.Channel)
	if err != nil {
		return nil, interfaces.Wrap("thermocouple.read-temperature", interfaces.CodeCommunicationFailed, err)
	}

	sensitivity, ok := sensitivityMvPerC[a.ThermocoupleType]
	if !ok {
		return nil, interfaces.New("thermocouple.read-temperature", interfaces.CodeInvalidParameter, "unknown thermocouple type")
	}
	return mv/sensitivity + a.ColdJunctionC, nil
}
