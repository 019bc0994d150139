package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed      = fmt.Errorf("authentication failed")
	ErrAccountNotFound = fmt.Errorf("account not found")

	// Remote errors
	ErrTransport = fmt.Errorf("transport failure")
	ErrParse     = fmt.Errorf("malformed response")

	// Storage errors
	ErrStorage         = fmt.Errorf("local storage failure")
	ErrEntryNotFound   = fmt.Errorf("playlist entry not found")
	ErrPendingEntry    = fmt.Errorf("playlist entry has unsynced changes")
	ErrInvalidState    = fmt.Errorf("invalid sync state")
	ErrLibraryNotFound = fmt.Errorf("library entry not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// FailureKind discriminates why a sync cycle stopped.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureAuth
	FailureIO
	FailureParse
	FailureCanceled
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureAuth:
		return "auth"
	case FailureIO:
		return "io"
	case FailureParse:
		return "parse"
	case FailureCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// SyncError records the step of a sync cycle that failed along with its classification.
type SyncError struct {
	Kind FailureKind
	Step string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Classify maps an error from any sync step onto a [FailureKind].
//
// Only [context.Canceled] counts as cancellation; an expired deadline is a transport timeout.
// Local storage and credential store failures ([ErrStorage]) are counted with parse failures: the cycle could not
// make sense of its own state. Anything else that is neither an auth nor a parse failure is treated as I/O.
func Classify(err error) FailureKind {
	var se *SyncError
	switch {
	case err == nil:
		return FailureNone
	case errors.As(err, &se) && se.Kind != FailureNone:
		return se.Kind
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, ErrAuthFailed):
		return FailureAuth
	case errors.Is(err, ErrParse), errors.Is(err, ErrStorage):
		return FailureParse
	default:
		return FailureIO
	}
}

// NewSyncError wraps err for step, classifying it with [Classify].
func NewSyncError(step string, err error) *SyncError {
	return &SyncError{Kind: Classify(err), Step: step, Err: err}
}
