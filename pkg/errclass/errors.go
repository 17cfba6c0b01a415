package errclass

import (
	"errors"
	"fmt"
)

// SumerianError is a stable, machine-readable error class.
type SumerianError struct {
	Code    string
	Message string
}

func (e *SumerianError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SumerianError) Is(target error) bool {
	t, ok := target.(*SumerianError)
	return ok && e.Code == t.Code
}

// WithMessage returns a new SumerianError with the same Code but a specific message.
func (e *SumerianError) WithMessage(msg string) *SumerianError {
	return &SumerianError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new SumerianError with a formatted message.
func (e *SumerianError) WithMessagef(format string, args ...any) *SumerianError {
	return &SumerianError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Stable error classes.
var (
	ErrAccessDenied       = &SumerianError{Code: "E_ACCESS_DENIED"}
	ErrIOFailure          = &SumerianError{Code: "E_IO_FAILURE"}
	ErrSnapshotCapture    = &SumerianError{Code: "E_SNAPSHOT_CAPTURE"}
	ErrSnapshotMissing    = &SumerianError{Code: "E_SNAPSHOT_MISSING"}
	ErrCheckpointPartial  = &SumerianError{Code: "E_CHECKPOINT_PARTIAL"}
	ErrCheckpointNotFound = &SumerianError{Code: "E_CHECKPOINT_NOT_FOUND"}
	ErrMetadataCorrupt    = &SumerianError{Code: "E_METADATA_CORRUPT"}
	ErrFormatUnsupported  = &SumerianError{Code: "E_FORMAT_UNSUPPORTED"}
	ErrAuditChainBroken   = &SumerianError{Code: "E_AUDIT_CHAIN_BROKEN"}
	ErrLabelInvalid       = &SumerianError{Code: "E_LABEL_INVALID"}
	ErrNoProject          = &SumerianError{Code: "E_NO_PROJECT"}
)

// IOError is an underlying filesystem failure surfaced to the caller.
// It matches both ErrIOFailure and the wrapped error with errors.Is.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// NewIOError wraps err as an IOFailure for op on path.
func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrIOFailure.Code, e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool {
	return errors.Is(ErrIOFailure, target)
}
