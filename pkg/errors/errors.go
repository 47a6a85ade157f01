// Unified error handling for the BeagleG host.
//
// Copyright (C) 2026  BeagleG Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import "fmt"

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Resource mapping errors: a register window or shared-memory
	// mapping call failed.
	ErrMapGPIO   ErrorCode = "MAP_GPIO"
	ErrMapShared ErrorCode = "MAP_SHARED"

	// Coprocessor errors: the PRU subsystem failed to open its
	// interrupt path or to take the firmware image.
	ErrCoprocOpen     ErrorCode = "COPROC_OPEN"
	ErrCoprocFirmware ErrorCode = "COPROC_FIRMWARE"

	// Lifecycle errors: a startup step failed and the sequence aborted.
	ErrLifecycle ErrorCode = "LIFECYCLE"
)

// HostError is the unified error type for the host system
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Step is the startup step or operation that failed (if applicable)
	Step string

	// Device is the device path or hardware region involved (if applicable)
	Device string

	// Err wraps the underlying error
	Err error
}

// Error implements the error interface
func (e *HostError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// SetStep sets the failing step
func (e *HostError) SetStep(step string) *HostError {
	e.Step = step
	return e
}

// SetDevice sets the device involved
func (e *HostError) SetDevice(device string) *HostError {
	e.Device = device
	return e
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Mapping errors

// MapGPIOError creates an error for a failed GPIO register mapping
func MapGPIOError(region string, err error) *HostError {
	return Wrap(err, ErrMapGPIO, fmt.Sprintf("couldn't mmap %s register range: %v", region, err)).
		SetDevice(region)
}

// SharedMemoryError creates an error for a failed shared-memory mapping
func SharedMemoryError(reason string, err error) *HostError {
	if err == nil {
		return New(ErrMapShared, reason)
	}
	return Wrap(err, ErrMapShared, fmt.Sprintf("%s: %v", reason, err))
}

// Coprocessor errors

// CoprocessorOpenError creates an error for PRU subsystem open failure
func CoprocessorOpenError(device string, err error) *HostError {
	return Wrap(err, ErrCoprocOpen, fmt.Sprintf("couldn't open PRU subsystem via %s: %v", device, err)).
		SetDevice(device)
}

// FirmwareError creates an error for firmware load or start failure
func FirmwareError(reason string) *HostError {
	return New(ErrCoprocFirmware, reason)
}

// Lifecycle errors

// StartupError wraps a failing startup step so callers learn which step
// aborted the sequence
func StartupError(step string, err error) *HostError {
	return Wrap(err, ErrLifecycle, fmt.Sprintf("startup step '%s' failed: %v", step, err)).
		SetStep(step)
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	hostErr, ok := err.(*HostError)
	if !ok {
		return false
	}
	if hostErr.Code == code {
		return true
	}
	return Is(hostErr.Err, code)
}

// IsResourceMapping checks if error is a register or shared-memory
// mapping failure
func IsResourceMapping(err error) bool {
	return Is(err, ErrMapGPIO) || Is(err, ErrMapShared)
}

// IsCoprocessorInit checks if error is a PRU subsystem failure
func IsCoprocessorInit(err error) bool {
	return Is(err, ErrCoprocOpen) || Is(err, ErrCoprocFirmware)
}
