package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError for API consumers.
type ErrorKind string

const (
	ErrSpawn            ErrorKind = "spawn_failed"
	ErrDuplicateSession ErrorKind = "duplicate_session"
	ErrSessionNotFound  ErrorKind = "session_not_found"
	ErrDeviceUnready    ErrorKind = "device_unready"
	ErrTransferIO       ErrorKind = "transfer_io"
	ErrTransferNotFound ErrorKind = "transfer_not_found"
	ErrAdbFailed        ErrorKind = "adb_failed"
	ErrInvalidPath      ErrorKind = "invalid_path"
)

// AppError is the only error type the orchestration layer lets escape.
// Lower-level OS errors are always wrapped into one of the kinds above.
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Guidance returns a short user-facing hint for the error kind,
// shown by the UI next to the raw message.
func (e *AppError) Guidance() string {
	switch e.Kind {
	case ErrSpawn:
		return "Check the tool path in Settings and that the binary is executable."
	case ErrDuplicateSession:
		return "A session for this device and mode is already running."
	case ErrSessionNotFound:
		return "No matching session. It may have been stopped or crashed already."
	case ErrDeviceUnready:
		return "Ensure the cable is connected and USB debugging is authorized."
	case ErrTransferIO:
		return "File transfer failed. Check device connection and storage permissions."
	case ErrTransferNotFound:
		return "No transfer with this id."
	case ErrAdbFailed:
		return "Check if ADB is configured correctly and the device is connected."
	case ErrInvalidPath:
		return "The specified path does not exist or is not accessible."
	}
	return ""
}

func NewSpawnError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrSpawn, Message: fmt.Sprintf(format, args...)}
}

func NewDuplicateSessionError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrDuplicateSession, Message: fmt.Sprintf(format, args...)}
}

func NewSessionNotFoundError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrSessionNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewDeviceUnreadyError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrDeviceUnready, Message: fmt.Sprintf(format, args...)}
}

func NewTransferIOError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrTransferIO, Message: fmt.Sprintf(format, args...)}
}

func NewTransferNotFoundError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrTransferNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewAdbError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrAdbFailed, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidPathError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrInvalidPath, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, or "" when err is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
