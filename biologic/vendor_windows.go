//go:build windows

package biologic

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// dllVendor calls into the BioLogic EClib shared library (EClib64.dll) via
// golang.org/x/sys/windows.NewLazySystemDLL, the same lazy-binding pattern
// the teacher's uapi layer uses for its own syscall surface.
type dllVendor struct {
	mu sync.Mutex

	connect       *windows.LazyProc
	disconnect    *windows.LazyProc
	loadTechnique *windows.LazyProc
	startChannel  *windows.LazyProc
	stopChannel   *windows.LazyProc
	getValues     *windows.LazyProc
	getData       *windows.LazyProc
	getBoardInfo  *windows.LazyProc
}

// NewVendor loads EClib64.dll and binds the handful of entry points the
// technique engine needs. libPath is typically "EClib64.dll" when the
// vendor library is on PATH, or an absolute path.
func NewVendor(libPath string) (Vendor, error) {
	dll := windows.NewLazySystemDLL(libPath)
	v := &dllVendor{
		connect:       dll.NewProc("BL_Connect"),
		disconnect:    dll.NewProc("BL_Disconnect"),
		loadTechnique: dll.NewProc("BL_LoadTechnique"),
		startChannel:  dll.NewProc("BL_StartChannel"),
		stopChannel:   dll.NewProc("BL_StopChannel"),
		getValues:     dll.NewProc("BL_GetCurrentValues"),
		getData:       dll.NewProc("BL_GetData"),
		getBoardInfo:  dll.NewProc("BL_GetChannelBoardType"),
	}
	if err := dll.Load(); err != nil {
		return nil, interfaces.Wrap("biologic.load-vendor", interfaces.CodeCommunicationFailed, err)
	}
	return v, nil
}

func (v *dllVendor) Connect(address string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	addrPtr, err := windows.BytePtrFromString(address)
	if err != nil {
		return 0, interfaces.Wrap("biologic.connect", interfaces.CodeInvalidParameter, err)
	}
	var handle int32
	var timeout int32 = 5
	ret, _, _ := v.connect.Call(
		uintptr(unsafe.Pointer(addrPtr)),
		uintptr(unsafe.Pointer(&timeout)),
		uintptr(unsafe.Pointer(&handle)),
	)
	if int32(ret) != 0 {
		return 0, deviceError("biologic.connect", int32(ret))
	}
	return int(handle), nil
}

func (v *dllVendor) Disconnect(handle int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	ret, _, _ := v.disconnect.Call(uintptr(int32(handle)))
	if int32(ret) != 0 {
		return deviceError("biologic.disconnect", int32(ret))
	}
	return nil
}

func (v *dllVendor) LoadTechnique(handle, channel int, eccPath string, params []Param, first, last bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	pathPtr, err := windows.BytePtrFromString(eccPath)
	if err != nil {
		return interfaces.Wrap("biologic.load-technique", interfaces.CodeInvalidParameter, err)
	}
	packed := packParams(params)
	ret, _, _ := v.loadTechnique.Call(
		uintptr(int32(handle)),
		uintptr(int32(channel)),
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&packed[0])),
		uintptr(int32(len(params))),
		boolToUintptr(first),
		boolToUintptr(last),
		0,
	)
	if int32(ret) != 0 {
		return deviceError("biologic.load-technique", int32(ret))
	}
	return nil
}

func (v *dllVendor) StartChannel(handle, channel int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	ret, _, _ := v.startChannel.Call(uintptr(int32(handle)), uintptr(int32(channel)))
	if int32(ret) != 0 {
		return deviceError("biologic.start-channel", int32(ret))
	}
	return nil
}

func (v *dllVendor) StopChannel(handle, channel int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	ret, _, _ := v.stopChannel.Call(uintptr(int32(handle)), uintptr(int32(channel)))
	if int32(ret) != 0 {
		return deviceError("biologic.stop-channel", int32(ret))
	}
	return nil
}

func (v *dllVendor) GetCurrentValues(handle, channel int) (ChannelStatus, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var raw [16]int32
	ret, _, _ := v.getValues.Call(
		uintptr(int32(handle)),
		uintptr(int32(channel)),
		uintptr(unsafe.Pointer(&raw[0])),
	)
	if int32(ret) != 0 {
		return ChannelStatus{}, deviceError("biologic.get-current-values", int32(ret))
	}
	status := ChannelStatus{
		State:       ChannelState(raw[0]),
		MemFilled:   uint32(raw[1]),
		OptionError: raw[2],
	}
	if status.OptionError != 0 {
		status.ErrorMsg = fmt.Sprintf("device option error %d", status.OptionError)
	}
	return status, nil
}

func (v *dllVendor) GetData(handle, channel int) (DataBuffer, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	const maxWords = 1000 * 64
	words := make([]uint32, maxWords)
	var rows, cols, techID, procIdx int32
	ret, _, _ := v.getData.Call(
		uintptr(int32(handle)),
		uintptr(int32(channel)),
		uintptr(unsafe.Pointer(&words[0])),
		uintptr(unsafe.Pointer(&rows)),
		uintptr(unsafe.Pointer(&cols)),
		uintptr(unsafe.Pointer(&techID)),
		uintptr(unsafe.Pointer(&procIdx)),
	)
	if int32(ret) != 0 {
		return DataBuffer{}, deviceError("biologic.get-data", int32(ret))
	}
	n := int(rows) * int(cols)
	if n > len(words) {
		n = len(words)
	}
	return DataBuffer{
		TechniqueID:  int(techID),
		ProcessIndex: ProcessIndex(procIdx),
		Rows:         int(rows),
		Cols:         int(cols),
		Words:        append([]uint32(nil), words[:n]...),
	}, nil
}

func (v *dllVendor) GetBoardInfo(handle, channel int) (BoardInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var boardType int32
	ret, _, _ := v.getBoardInfo.Call(
		uintptr(int32(handle)),
		uintptr(int32(channel)),
		uintptr(unsafe.Pointer(&boardType)),
	)
	if int32(ret) != 0 {
		return BoardInfo{}, deviceError("biologic.get-board-info", int32(ret))
	}
	return BoardInfo{BoardType: int(boardType), Timebase: timebaseForBoard(int(boardType))}, nil
}

// timebaseForBoard maps a board type to its tick duration in seconds.
// KBIO boards in practice use one of two timebases; unknown board types
// fall back to the more common one rather than failing the whole retrieval.
func timebaseForBoard(boardType int) float64 {
	if boardType == 0 {
		return 1e-3
	}
	return 1e-6
}

// eccParam mirrors the vendor's fixed-layout TEccParam_t: a 64-byte label,
// a type tag, and a 4-byte value union (bool/int32/float32 all fit).
type eccParam struct {
	label [64]byte
	kind  int32
	value int32
	index int32
}

func packParams(params []Param) []eccParam {
	if len(params) == 0 {
		return []eccParam{{}}
	}
	packed := make([]eccParam, len(params))
	for i, p := range params {
		copy(packed[i].label[:], p.Label)
		packed[i].kind = int32(p.Kind)
		packed[i].index = p.Index
		switch p.Kind {
		case ParamBool:
			packed[i].value = int32(boolToUintptr(p.Bool))
		case ParamInt:
			packed[i].value = p.Int
		case ParamSingle:
			packed[i].value = int32(math.Float32bits(p.Single))
		}
	}
	return packed
}

func deviceError(op string, code int32) error {
	return interfaces.NewDeviceError(op, interfaces.CodeOperationFailed, "", fmt.Sprintf("vendor error code %d", code))
}

func boolToUintptr(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}
