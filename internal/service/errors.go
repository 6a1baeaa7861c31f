package service

import (
	"errors"
	"fmt"
)

// Typed errors so the delivery layer can map them to HTTP statuses.
var (
	ErrReportNotFound         = errors.New("report not found")
	ErrQueueUnavailable       = errors.New("grading queue is not available")
	ErrPersistenceUnavailable = errors.New("report storage is not available")
	ErrGradingFailed          = errors.New("grading failed")
)

// ValidationError describes a request rejected before any similarity call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsPermanent reports whether retrying a job would fail the same way.
func IsPermanent(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrReportNotFound) ||
		errors.Is(err, ErrGradingFailed)
}
