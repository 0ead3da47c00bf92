package biologic

import "sync"

// fakeVendor is a fully in-memory Vendor double for technique-engine tests.
type fakeVendor struct {
	mu sync.Mutex

	connectErr error
	stopErr    error
	loadErr    error
	startErr   error

	currentValues []ChannelStatus
	valuesIdx     int

	dataBuffers []DataBuffer
	dataErrs    []error
	dataIdx     int

	boardInfo BoardInfo
	boardErr  error

	loadedPath   string
	loadedParams []Param
	stopCalls    int
}

func (f *fakeVendor) Connect(address string) (int, error) { return 7, f.connectErr }

func (f *fakeVendor) Disconnect(handle int) error { return nil }

func (f *fakeVendor) LoadTechnique(handle, channel int, eccPath string, params []Param, first, last bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadedPath = eccPath
	f.loadedParams = params
	return f.loadErr
}

func (f *fakeVendor) StartChannel(handle, channel int) error { return f.startErr }

func (f *fakeVendor) StopChannel(handle, channel int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeVendor) GetCurrentValues(handle, channel int) (ChannelStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.currentValues) == 0 {
		return ChannelStatus{}, nil
	}
	idx := f.valuesIdx
	if idx >= len(f.currentValues) {
		idx = len(f.currentValues) - 1
	} else {
		f.valuesIdx++
	}
	return f.currentValues[idx], nil
}

func (f *fakeVendor) GetData(handle, channel int) (DataBuffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.dataIdx
	f.dataIdx++
	if idx >= len(f.dataBuffers) {
		idx = len(f.dataBuffers) - 1
	}
	if idx < 0 {
		return DataBuffer{}, nil
	}
	var err error
	if idx < len(f.dataErrs) {
		err = f.dataErrs[idx]
	}
	return f.dataBuffers[idx], err
}

func (f *fakeVendor) GetBoardInfo(handle, channel int) (BoardInfo, error) {
	return f.boardInfo, f.boardErr
}
