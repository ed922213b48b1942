package faults

import (
	"errors"
	"fmt"
)

// Fault is a coded error for the aggregation pipeline. Codes classify how a
// failure propagates: source failures are absorbed per cycle, everything else
// reaches the caller.
type Fault struct {
	Code    string
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", f.Code, f.Message, f.Cause)
	}
	return fmt.Sprintf("[%s] %s", f.Code, f.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (f *Fault) Unwrap() error { return f.Cause }

// Is matches by code so sentinel comparisons survive wrapping.
func (f *Fault) Is(target error) bool {
	if t, ok := target.(*Fault); ok {
		return f.Code == t.Code
	}
	return false
}

// Is reports whether err carries the target fault's code anywhere in its
// chain.
func Is(err, target error) bool { return errors.Is(err, target) }

// Wrap attaches a cause to a predefined fault.
func Wrap(base *Fault, cause error) *Fault {
	return &Fault{Code: base.Code, Message: base.Message, Cause: cause}
}

// Wrapf attaches a formatted cause to a predefined fault.
func Wrapf(base *Fault, format string, a ...interface{}) *Fault {
	return Wrap(base, fmt.Errorf(format, a...))
}

var (
	// ErrSourceUnavailable: one external collaborator failed or timed out.
	// Recovered locally, never surfaced as a top-level error.
	ErrSourceUnavailable = &Fault{Code: "SOURCE_UNAVAILABLE", Message: "data source unavailable"}

	// ErrAllSourcesFailed: every concurrent fetch of a cycle failed. Fatal for
	// the cycle, retryable for the caller.
	ErrAllSourcesFailed = &Fault{Code: "ALL_SOURCES_FAILED", Message: "all data sources failed"}

	// ErrInvalidConfig: session table or threshold table malformed. Fails the
	// process before serving.
	ErrInvalidConfig = &Fault{Code: "INVALID_CONFIG", Message: "configuration invalid"}

	// ErrScoring: programming defect in the deterministic scoring path. Never
	// swallowed; the ranking output cannot be trusted.
	ErrScoring = &Fault{Code: "SCORING_ERROR", Message: "internal scoring error"}

	ErrUnknownView = &Fault{Code: "UNKNOWN_VIEW", Message: "unknown aggregated-view kind"}
	ErrUnknownSession = &Fault{Code: "UNKNOWN_SESSION", Message: "unknown session key"}
)
