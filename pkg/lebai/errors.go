package lebai

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoTask is returned when a task operation runs before a task id is known.
	ErrNoTask = errors.New("lebai: no task id, start the scene first")

	// ErrUnsupportedDevice is returned for IO device classes without a command table.
	ErrUnsupportedDevice = errors.New("lebai: unsupported io device type")

	// ErrStreamClosed is returned when the log stream ends before the task does.
	ErrStreamClosed = errors.New("lebai: log stream closed before task finished")

	// ErrIdleTimeout is returned when neither log data nor a terminal status
	// arrives within the idle timeout.
	ErrIdleTimeout = errors.New("lebai: log stream idle timeout")

	// ErrInvalidStatus is returned for task status codes outside the known range.
	ErrInvalidStatus = errors.New("lebai: invalid task status")
)

// Error is returned when the device answers with a non-zero code.
type Error struct {
	// Code is the response code reported by the device.
	Code int

	// Params holds the message parameters (msg_params), if any.
	Params []any

	// Data is the raw data payload of the response.
	Data json.RawMessage

	// Op is the command or endpoint that failed.
	Op string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Params) > 0 {
		return fmt.Sprintf("lebai [%s]: device error %d %v", e.Op, e.Code, e.Params)
	}
	return fmt.Sprintf("lebai [%s]: device error %d", e.Op, e.Code)
}

// TransportError wraps failures below the response envelope: connection
// errors, non-2xx statuses and bodies that are not valid JSON.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int // 0 if no response was received
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lebai: %s %s: http %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("lebai: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// StreamError is returned when the log stream fails before the task reaches
// a terminal state. Output holds everything received up to the failure.
type StreamError struct {
	Output string
	Err    error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("lebai: log stream: %v (%d bytes received)", e.Err, len(e.Output))
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsDomainError reports whether err is or wraps a device *Error.
func IsDomainError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}
