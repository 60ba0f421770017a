package core

import "errors"

// Common errors.
var (
	// ErrNotFound signals a missing daily note, as opposed to a read failure.
	ErrNotFound = errors.New("document not found")

	// ErrLockTimeout signals that the queue lock could not be acquired within
	// the bounded wait. The calling cycle should skip and retry later.
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrCycleInFlight signals that a synchronization cycle is already
	// running. Re-entrant invocations are skipped, not queued.
	ErrCycleInFlight = errors.New("sync cycle already in flight")
)

// Severity classifies a failure for cycle-level policy. Transient failures
// abort the current cycle and are retried on the next tick; fatal failures
// must stop the process because continuing would risk diverging from or
// losing committed history.
type Severity int

const (
	SeverityTransient Severity = iota
	SeverityFatal
)

type severityError struct {
	err      error
	severity Severity
}

func (e *severityError) Error() string {
	return e.err.Error()
}

func (e *severityError) Unwrap() error {
	return e.err
}

// Transient marks err as retryable on the next cycle.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &severityError{err: err, severity: SeverityTransient}
}

// Fatal marks err as unrecoverable for the process.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &severityError{err: err, severity: SeverityFatal}
}

// Classify reports the severity of err. Unmarked errors default to
// transient so that callers can only stop the scheduler deliberately.
func Classify(err error) Severity {
	var se *severityError
	if errors.As(err, &se) {
		return se.severity
	}
	return SeverityTransient
}
