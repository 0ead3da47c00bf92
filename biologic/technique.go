package biologic

import (
	"time"

	"github.com/kjorgensen/labctl/internal/constants"
)

// Technique identifies one of the five electrochemical techniques this
// engine drives.
type Technique int

const (
	TechniqueOCV Technique = iota
	TechniquePEIS
	TechniqueSPEIS
	TechniqueGEIS
	TechniqueSGEIS
)

func (t Technique) String() string {
	switch t {
	case TechniqueOCV:
		return "OCV"
	case TechniquePEIS:
		return "PEIS"
	case TechniqueSPEIS:
		return "SPEIS"
	case TechniqueGEIS:
		return "GEIS"
	case TechniqueSGEIS:
		return "SGEIS"
	default:
		return "unknown"
	}
}

// ECCPath returns the technique file path to load (§6.3).
func (t Technique) ECCPath() string {
	switch t {
	case TechniqueOCV:
		return constants.ECCPathOCV
	case TechniquePEIS:
		return constants.ECCPathPEIS
	case TechniqueSPEIS:
		return constants.ECCPathSPEIS
	case TechniqueGEIS:
		return constants.ECCPathGEIS
	case TechniqueSGEIS:
		return constants.ECCPathSGEIS
	default:
		return ""
	}
}

// IsImpedance reports whether t is one of the four EIS-family techniques,
// which produce a two-process data stream instead of a single time series.
func (t Technique) IsImpedance() bool {
	switch t {
	case TechniquePEIS, TechniqueSPEIS, TechniqueGEIS, TechniqueSGEIS:
		return true
	default:
		return false
	}
}

// ExpectedProcessIndex is the process a completed run of t should yield
// when the caller asks for processed (not raw) data.
func (t Technique) ExpectedProcessIndex() ProcessIndex {
	if t.IsImpedance() {
		return ProcessImpedance
	}
	return ProcessTimeSeries
}

// State is the technique engine's run state (§4.7).
type State int

const (
	StateIdle State = iota
	StateLoading
	StateRunning
	StateCompleted
	StateError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateError, StateCancelled:
		return true
	default:
		return false
	}
}

// KeyParameters are the values the state machine itself needs to reason
// about progress and ranges, pulled out of the flat Param list so Update
// doesn't have to re-scan it on every tick.
type KeyParameters struct {
	Duration       time.Duration
	FrequencyMin   float32
	FrequencyMax   float32
	SampleInterval time.Duration
	ERange         ERange
	IRange         IRange
}
