package biologic

import (
	"fmt"
	"sync"
	"time"

	"github.com/kjorgensen/labctl/internal/constants"
	"github.com/kjorgensen/labctl/internal/interfaces"
)

// Context is one technique run's state machine (§4.7): Idle -> Loading ->
// Running -> {Completed | Error | Cancelled}. One Context is reused across
// back-to-back runs on the same channel; Start resets it.
type Context struct {
	mu sync.Mutex

	vendor Vendor

	deviceHandle int
	channel      int
	technique    Technique
	params       []Param
	keyParams    KeyParameters
	eccPath      string
	processData  bool

	state State

	raw       *DataBuffer
	converted *ConvertedData

	lastStatus   ChannelStatus
	startMemFill uint32
	updateCount  int

	startTime  time.Time
	lastUpdate time.Time

	lastErr error

	onProgress func(elapsed time.Duration, memFilled uint32, user any)
	onData     func(raw *DataBuffer, converted *ConvertedData, user any)
	user       any
}

// NewContext creates an idle technique context driven by vendor.
func NewContext(vendor Vendor) *Context {
	return &Context{vendor: vendor, state: StateIdle}
}

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Context) UpdateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateCount
}

func (c *Context) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

// Start loads and begins technique on channel (§4.7 step-by-step):
// stop whatever is running (tolerating "channel not plugged"), settle,
// load the technique as both first and last in its sequence, then start
// the channel. A caller-supplied onProgress/onData pair is invoked from
// Update; user is threaded through untouched.
func (c *Context) Start(
	handle, channel int,
	technique Technique,
	keyParams KeyParameters,
	params []Param,
	processData bool,
	onProgress func(elapsed time.Duration, memFilled uint32, user any),
	onData func(raw *DataBuffer, converted *ConvertedData, user any),
	user any,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deviceHandle = handle
	c.channel = channel
	c.technique = technique
	c.keyParams = keyParams
	c.params = append([]Param(nil), params...)
	c.eccPath = technique.ECCPath()
	c.processData = processData
	c.onProgress = onProgress
	c.onData = onData
	c.user = user
	c.raw = nil
	c.converted = nil
	c.lastErr = nil
	c.updateCount = 0
	c.startTime = time.Now()
	c.lastUpdate = c.startTime

	if err := c.vendor.StopChannel(handle, channel); err != nil && !interfaces.IsCode(err, interfaces.CodeChannelNotPlugged) {
		c.state = StateError
		c.lastErr = err
		return err
	}
	time.Sleep(constants.StopChannelSettle)

	c.state = StateLoading
	if err := c.vendor.LoadTechnique(handle, channel, c.eccPath, c.params, true, true); err != nil {
		c.state = StateError
		c.lastErr = err
		return err
	}
	if err := c.vendor.StartChannel(handle, channel); err != nil {
		c.state = StateError
		c.lastErr = err
		return err
	}
	return nil
}

// Update polls the device once and advances the state machine. Callers
// drive Start followed by repeated Update calls (on their own tick
// interval) until State().Terminal() is true.
func (c *Context) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateLoading:
		status, err := c.vendor.GetCurrentValues(c.deviceHandle, c.channel)
		if err != nil {
			return err
		}
		c.lastStatus = status
		c.updateCount++
		c.lastUpdate = time.Now()
		if status.State == ChannelRun {
			c.startMemFill = status.MemFilled
			c.state = StateRunning
		}
		return nil

	case StateRunning:
		status, err := c.vendor.GetCurrentValues(c.deviceHandle, c.channel)
		if err != nil {
			return err
		}
		c.lastStatus = status
		c.updateCount++
		c.lastUpdate = time.Now()
		if c.onProgress != nil {
			c.onProgress(time.Since(c.startTime), status.MemFilled, c.user)
		}
		if status.State == ChannelStop {
			c.retrieveData(status)
		}
		return nil

	default:
		return nil
	}
}

// retrieveData implements §4.7's "up to three retrievals" rule: for
// impedance techniques a successful GetData whose process index doesn't
// match what's expected is treated as transient and retried (the vendor
// library sometimes hands back the time-series process right after the
// sweep finishes); any actual error from GetData is treated as
// non-transient and stops the loop.
func (c *Context) retrieveData(status ChannelStatus) {
	expected := c.technique.ExpectedProcessIndex()
	var captured *DataBuffer

	for attempt := 0; attempt < 3; attempt++ {
		buf, err := c.vendor.GetData(c.deviceHandle, c.channel)
		if err != nil {
			break
		}
		if buf.ProcessIndex == expected || !c.technique.IsImpedance() {
			captured = &buf
			break
		}
	}

	if captured != nil {
		c.raw = &DataBuffer{
			TechniqueID:  captured.TechniqueID,
			ProcessIndex: captured.ProcessIndex,
			Rows:         captured.Rows,
			Cols:         captured.Cols,
			Words:        append([]uint32(nil), captured.Words...),
		}

		if c.processData {
			if board, err := c.vendor.GetBoardInfo(c.deviceHandle, c.channel); err == nil {
				if converted, cErr := Convert(c.technique, c.raw.ProcessIndex, *c.raw, board.Timebase); cErr == nil {
					c.converted = converted
				}
			}
		}
	}

	if c.onData != nil && captured != nil {
		c.onData(c.raw, c.converted, c.user)
	}

	switch {
	case captured != nil:
		c.state = StateCompleted
	case status.OptionError != 0:
		c.state = StateError
		c.lastErr = interfaces.NewDeviceError("biologic.update", interfaces.CodeOperationFailed, "", fmt.Sprintf("device option error %d", status.OptionError))
	default:
		c.state = StateError
		c.lastErr = interfaces.New("biologic.update", interfaces.CodeNoDataRetrieved, "no data retrieved after channel stop")
	}
}

// Stop requests an early halt. It always force-stops the channel; the
// state moves to Cancelled only from Loading or Running, and a terminal
// state is left unchanged.
func (c *Context) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.vendor.StopChannel(c.deviceHandle, c.channel)
	if c.state == StateLoading || c.state == StateRunning {
		c.state = StateCancelled
	}
}

// Free releases the retained raw/converted buffers and parameter copy.
// Safe to call regardless of state.
func (c *Context) Free() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = nil
	c.converted = nil
	c.params = nil
}

// GetData returns the retained buffers. With transferOwnership, the
// context gives up its converted copy (subsequent calls see nil for
// Converted until the next run completes) while the raw buffer is handed
// back as an independent deep copy either way.
func (c *Context) GetData(transferOwnership bool) (*DataBuffer, *ConvertedData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rawCopy *DataBuffer
	if c.raw != nil {
		rawCopy = &DataBuffer{
			TechniqueID:  c.raw.TechniqueID,
			ProcessIndex: c.raw.ProcessIndex,
			Rows:         c.raw.Rows,
			Cols:         c.raw.Cols,
			Words:        append([]uint32(nil), c.raw.Words...),
		}
	}
	if !transferOwnership {
		return rawCopy, c.converted
	}
	converted := c.converted
	c.converted = nil
	return rawCopy, converted
}
