package labctl

import "github.com/kjorgensen/labctl/internal/interfaces"

// Code classifies every error this module returns (§7): parameter/state,
// lifecycle, transport, opaque device-reported pass-throughs, and
// data-layer codes.
type Code = interfaces.Code

const (
	CodeInvalidParameter Code = interfaces.CodeInvalidParameter
	CodeInvalidState     Code = interfaces.CodeInvalidState
	CodeNullPointer      Code = interfaces.CodeNullPointer

	CodeNotInitialized  Code = interfaces.CodeNotInitialized
	CodeQueueFull       Code = interfaces.CodeQueueFull
	CodeTimeout         Code = interfaces.CodeTimeout
	CodeCancelled       Code = interfaces.CodeCancelled
	CodeOutOfMemory     Code = interfaces.CodeOutOfMemory
	CodeOperationFailed Code = interfaces.CodeOperationFailed

	CodeCommunicationFailed Code = interfaces.CodeCommunicationFailed
	CodeDeviceNotConnected  Code = interfaces.CodeDeviceNotConnected

	CodeConnectionInProgress   Code = interfaces.CodeConnectionInProgress
	CodeChannelNotPlugged      Code = interfaces.CodeChannelNotPlugged
	CodeFunctionInProgress     Code = interfaces.CodeFunctionInProgress
	CodeDeviceMemoryFull       Code = interfaces.CodeDeviceMemoryFull
	CodeFirmwareIncompatible   Code = interfaces.CodeFirmwareIncompatible
	CodeTechniqueFileMissing   Code = interfaces.CodeTechniqueFileMissing
	CodeTechniqueFileCorrupted Code = interfaces.CodeTechniqueFileCorrupted
	CodeDataCorrupted          Code = interfaces.CodeDataCorrupted

	CodeNoDataRetrieved      Code = interfaces.CodeNoDataRetrieved
	CodeWrongProcessIndex    Code = interfaces.CodeWrongProcessIndex
	CodeUnknownTechniqueID   Code = interfaces.CodeUnknownTechniqueID
	CodeInvalidVariableCount Code = interfaces.CodeInvalidVariableCount
	CodeDataConversionFailed Code = interfaces.CodeDataConversionFailed
	CodePartialData          Code = interfaces.CodePartialData
)

// Error is the structured error type every layer of this module returns.
type Error = interfaces.Error

func NewError(op string, code Code, msg string) *Error { return interfaces.New(op, code, msg) }

func NewDeviceError(op string, code Code, deviceID, msg string) *Error {
	return interfaces.NewDeviceError(op, code, deviceID, msg)
}

func WrapError(op string, code Code, err error) *Error { return interfaces.Wrap(op, code, err) }

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code Code) bool { return interfaces.IsCode(err, code) }

var (
	ErrTimeout             = interfaces.ErrTimeout
	ErrCommunicationFailed = interfaces.ErrCommunicationFailed
	ErrCancelled           = interfaces.ErrCancelled
	ErrQueueFull           = interfaces.ErrQueueFull
	ErrInvalidState        = interfaces.ErrInvalidState
	ErrDeviceNotConnected  = interfaces.ErrDeviceNotConnected
)
