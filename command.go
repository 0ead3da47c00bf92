package labctl

import (
	"sync/atomic"

	"github.com/kjorgensen/labctl/internal/interfaces"
)

// CommandKind tags a command with a device-specific operation name.
type CommandKind = interfaces.CommandKind

// Priority selects one of the three bounded queues.
type Priority = interfaces.Priority

const (
	PriorityLow    = interfaces.PriorityLow
	PriorityNormal = interfaces.PriorityNormal
	PriorityHigh   = interfaces.PriorityHigh
)

// Result pairs an error with a kind-discriminated payload.
type Result = interfaces.Result

// Adapter is the capability set a device family implements to be driven by
// a Scheduler. See internal/interfaces.Adapter for the full contract.
type Adapter = interfaces.Adapter

// ParamCloner is the optional defensive-copy capability an Adapter may
// implement for params it cannot safely alias past Execute returning.
type ParamCloner = interfaces.ParamCloner

// Logger is the logging surface the scheduler depends on.
type Logger = interfaces.Logger

// globalCommandID is the process-wide monotonically increasing command
// identity counter from §3: shared across every Scheduler in the process
// so IDs are never reused even across devices, and starts at 1.
var globalCommandID atomic.Int64

func nextCommandID() int64 { return globalCommandID.Add(1) }
