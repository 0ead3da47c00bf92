package biologic

// ProcessIndex discriminates the two data sub-streams a technique can
// produce: a time-series stream (0) and, for impedance techniques, a
// frequency-indexed stream (1).
type ProcessIndex int

const (
	ProcessTimeSeries ProcessIndex = 0
	ProcessImpedance  ProcessIndex = 1
)

// ChannelState mirrors the vendor's run-state report for a channel.
type ChannelState int

const (
	ChannelStop ChannelState = iota
	ChannelRun
	ChannelPause
)

// ChannelStatus is the vendor's current-values report, polled to drive the
// technique state machine.
type ChannelStatus struct {
	State       ChannelState
	MemFilled   uint32
	OptionError int32
	ErrorMsg    string
}

// BoardInfo carries the board type and timebase needed to decode the
// two-word time columns in a retrieved DataBuffer.
type BoardInfo struct {
	BoardType int
	Timebase  float64
}

// DataBuffer is one retrieval's packed 32-bit word stream, in row-major
// order, exactly as the vendor library hands it back.
type DataBuffer struct {
	TechniqueID  int
	ProcessIndex ProcessIndex
	Rows         int
	Cols         int
	Words        []uint32
}

// Vendor is the capability set the technique engine needs from the vendor's
// shared library. It is the injected collaborator across the DLL boundary;
// the library's own symbol resolution and calling-convention plumbing is an
// explicit non-goal — vendor_windows.go and vendor_stub.go are the only two
// places that know about it.
type Vendor interface {
	Connect(address string) (handle int, err error)
	Disconnect(handle int) error

	LoadTechnique(handle, channel int, eccPath string, params []Param, firstTechnique, lastTechnique bool) error
	StartChannel(handle, channel int) error
	StopChannel(handle, channel int) error

	GetCurrentValues(handle, channel int) (ChannelStatus, error)
	GetData(handle, channel int) (DataBuffer, error)
	GetBoardInfo(handle, channel int) (BoardInfo, error)
}
