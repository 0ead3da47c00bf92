package interfaces

import (
	"errors"
	"fmt"
)

// Code is the domain-neutral error taxonomy from the error handling design:
// parameter/state errors, lifecycle errors, transport errors, opaque
// device-reported passthroughs, and data-layer errors.
type Code string

const (
	// Parameter/state.
	CodeInvalidParameter Code = "invalid-parameter"
	CodeInvalidState     Code = "invalid-state"
	CodeNullPointer      Code = "null-pointer"

	// Lifecycle.
	CodeNotInitialized  Code = "not-initialized"
	CodeQueueFull       Code = "queue-full"
	CodeTimeout         Code = "timeout"
	CodeCancelled       Code = "cancelled"
	CodeOutOfMemory     Code = "out-of-memory"
	CodeOperationFailed Code = "operation-failed"

	// Transport.
	CodeCommunicationFailed Code = "communication-failed"
	CodeDeviceNotConnected  Code = "device-not-connected"

	// Device-reported, opaque pass-through from the adapter.
	CodeConnectionInProgress   Code = "connection-in-progress"
	CodeChannelNotPlugged      Code = "channel-not-plugged"
	CodeFunctionInProgress     Code = "function-in-progress"
	CodeDeviceMemoryFull       Code = "device-memory-full"
	CodeFirmwareIncompatible   Code = "firmware-incompatible"
	CodeTechniqueFileMissing   Code = "technique-file-missing"
	CodeTechniqueFileCorrupted Code = "technique-file-corrupted"
	CodeDataCorrupted          Code = "data-corrupted"

	// Data-layer.
	CodeNoDataRetrieved      Code = "no-data-retrieved"
	CodeWrongProcessIndex    Code = "wrong-process-index"
	CodeUnknownTechniqueID   Code = "unknown-technique-id"
	CodeInvalidVariableCount Code = "invalid-variable-count"
	CodeDataConversionFailed Code = "data-conversion-failed"
	// CodePartialData is special: the technique produced usable data
	// despite ending in error. Callers should treat it as success with a
	// warning, not as a hard failure.
	CodePartialData Code = "partial-data"
)

// Error is the structured error every layer of this module returns. Op
// names the failing operation, Code classifies it, DeviceID identifies the
// device when known, and Inner wraps a lower-level cause (a Modbus error, a
// serial I/O error, a vendor DLL call failure, ...).
type Error struct {
	Op       string
	Code     Code
	DeviceID string
	Msg      string
	Inner    error
}

func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

func NewDeviceError(op string, code Code, deviceID, msg string) *Error {
	return &Error{Op: op, Code: code, DeviceID: deviceID, Msg: msg}
}

func Wrap(op string, code Code, err error) *Error {
	return &Error{Op: op, Code: code, Inner: err}
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Inner != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Code, e.Msg, e.Inner)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Msg)
	case e.Inner != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Inner)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is(err, &Error{Code: CodeTimeout}) style comparisons
// that key only on Code, the common case for callers that don't care which
// operation produced the error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// sentinel is a lightweight *Error used only for Is() comparisons via
// errors.Is(err, interfaces.ErrTimeout) — equivalent to IsCode but reads
// more naturally at call sites that already use errors.Is for everything
// else.
func sentinel(code Code) *Error { return &Error{Code: code} }

var (
	ErrTimeout             = sentinel(CodeTimeout)
	ErrCommunicationFailed = sentinel(CodeCommunicationFailed)
	ErrCancelled           = sentinel(CodeCancelled)
	ErrQueueFull           = sentinel(CodeQueueFull)
	ErrInvalidState        = sentinel(CodeInvalidState)
	ErrDeviceNotConnected  = sentinel(CodeDeviceNotConnected)
)
