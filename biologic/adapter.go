package biologic

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kjorgensen/labctl/internal/constants"
	"github.com/kjorgensen/labctl/internal/interfaces"
)

// CommandKind is the device-specific operation tag the scheduler dispatches
// on. This adapter recognizes exactly two.
type CommandKind = interfaces.CommandKind

const (
	// CommandRunTechnique drives a single technique run to completion,
	// blocking for as long as the device takes. Params must be
	// RunTechniqueParams; the result payload is RunTechniqueResult.
	CommandRunTechnique CommandKind = "run-technique"
	// CommandStopTechnique force-stops the channel and cancels whatever
	// technique is currently loading or running; if none is, the technique
	// state is left unchanged.
	CommandStopTechnique CommandKind = "stop-technique"
)

// RunTechniqueParams are the inputs to CommandRunTechnique.
type RunTechniqueParams struct {
	Channel      int
	Technique    Technique
	KeyParams    KeyParameters
	Params       []Param
	ProcessData  bool
	PollInterval time.Duration
	OnProgress   func(elapsed time.Duration, memFilled uint32)
	OnData       func(raw *DataBuffer, converted *ConvertedData)
}

// RunTechniqueResult is CommandRunTechnique's result payload.
type RunTechniqueResult struct {
	FinalState State
	Raw        *DataBuffer
	Converted  *ConvertedData
}

// Adapter drives one BioLogic potentiostat channel, wiring the technique
// Context's state machine in as the Execute implementation the scheduler's
// worker goroutine calls. Connect lazily loads the vendor library if one
// wasn't injected (tests inject a fake Vendor directly).
type Adapter struct {
	Address string
	LibPath string
	Vendor  Vendor

	mu      sync.Mutex
	handle  int
	techCtx *Context

	connected       atomic.Bool
	cancelRequested atomic.Bool
}

// NewAdapter constructs a BioLogic adapter. vendor may be nil, in which case
// Connect loads EClib from libPath (Windows only; see vendor_stub.go).
func NewAdapter(address, libPath string, vendor Vendor) *Adapter {
	return &Adapter{Address: address, LibPath: libPath, Vendor: vendor}
}

func (a *Adapter) Connect(ctx context.Context) error {
	if a.Vendor == nil {
		v, err := NewVendor(a.LibPath)
		if err != nil {
			return err
		}
		a.Vendor = v
	}

	handle, err := a.Vendor.Connect(a.Address)
	if err != nil {
		return interfaces.Wrap("biologic.connect", interfaces.CodeCommunicationFailed, err)
	}

	a.mu.Lock()
	a.handle = handle
	a.techCtx = NewContext(a.Vendor)
	a.mu.Unlock()

	a.connected.Store(true)
	time.Sleep(constants.SettleAfterConnect)
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected.Load() && a.Vendor != nil {
		_ = a.Vendor.Disconnect(a.handle)
	}
	a.connected.Store(false)
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	if !a.connected.Load() {
		return interfaces.ErrDeviceNotConnected
	}
	return nil
}

func (a *Adapter) IsConnected() bool { return a.connected.Load() }

func (a *Adapter) CommandName(kind CommandKind) string {
	switch kind {
	case CommandRunTechnique:
		return "run-technique"
	case CommandStopTechnique:
		return "stop-technique"
	default:
		return string(kind)
	}
}

func (a *Adapter) CommandDelay(kind CommandKind) time.Duration {
	if kind == CommandRunTechnique {
		return constants.SettleAfterTechniqueCompletion
	}
	return 0
}

// RequestStop asks the currently running technique (if any) to stop on its
// next poll tick. Safe to call from any goroutine — this is the
// caller-supplied cancel flag the technique engine polls each tick, set out
// of band from the command queue since Execute owns the worker goroutine
// for the run's whole duration.
func (a *Adapter) RequestStop() { a.cancelRequested.Store(true) }

func (a *Adapter) Execute(ctx context.Context, kind CommandKind, params any) (any, error) {
	switch kind {
	case CommandRunTechnique:
		p, ok := params.(RunTechniqueParams)
		if !ok {
			return nil, interfaces.New("biologic.execute", interfaces.CodeInvalidParameter, "expected RunTechniqueParams")
		}
		return a.runTechnique(ctx, p)

	case CommandStopTechnique:
		a.mu.Lock()
		tc := a.techCtx
		a.mu.Unlock()
		if tc != nil {
			tc.Stop()
		}
		return nil, nil

	default:
		return nil, interfaces.New("biologic.execute", interfaces.CodeInvalidParameter, "unknown command kind")
	}
}

func (a *Adapter) runTechnique(ctx context.Context, p RunTechniqueParams) (any, error) {
	a.mu.Lock()
	handle := a.handle
	tc := a.techCtx
	a.mu.Unlock()

	a.cancelRequested.Store(false)

	poll := p.PollInterval
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}

	onProgress := func(elapsed time.Duration, memFilled uint32, _ any) {
		if p.OnProgress != nil {
			p.OnProgress(elapsed, memFilled)
		}
	}
	onData := func(raw *DataBuffer, converted *ConvertedData, _ any) {
		if p.OnData != nil {
			p.OnData(raw, converted)
		}
	}

	if err := tc.Start(handle, p.Channel, p.Technique, p.KeyParams, p.Params, p.ProcessData, onProgress, onData, nil); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			tc.Stop()
		case <-ticker.C:
		}
		if a.cancelRequested.Load() {
			tc.Stop()
		}
		if err := tc.Update(); err != nil {
			return nil, err
		}
		if tc.State().Terminal() {
			break
		}
	}

	raw, converted := tc.GetData(true)
	result := RunTechniqueResult{FinalState: tc.State(), Raw: raw, Converted: converted}

	switch tc.State() {
	case StateCompleted:
		return result, nil
	case StateCancelled:
		return result, interfaces.New("biologic.run-technique", interfaces.CodeCancelled, "technique cancelled")
	default:
		if err := tc.LastError(); err != nil {
			return result, err
		}
		return result, interfaces.New("biologic.run-technique", interfaces.CodeOperationFailed, "technique ended in error")
	}
}
