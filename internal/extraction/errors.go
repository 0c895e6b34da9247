package extraction

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why an extraction failed.
type Kind string

const (
	// KindTimeout means the caller's deadline passed while waiting for the service.
	KindTimeout Kind = "timeout"
	// KindUnavailable means the service could not be reached or returned a transport error.
	KindUnavailable Kind = "unavailable"
	// KindServiceFailure means the service answered with an explicit failure document.
	KindServiceFailure Kind = "service_failure"
	// KindInvalidShape means the service answered but the output is not a usable course.
	KindInvalidShape Kind = "invalid_shape"
)

// ExtractionError is returned by the Adapter for every failed extraction.
type ExtractionError struct {
	Kind    Kind
	Message string
	Fields  []string // failing field paths, set for KindInvalidShape
	Cause   error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction failed (%s): %s", e.Kind, e.Message)
	if len(e.Fields) > 0 {
		msg += " [" + strings.Join(e.Fields, ", ") + "]"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether resubmitting the same text may succeed.
// Shape and service failures need a human to fix the source text.
func (e *ExtractionError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindUnavailable
}

// AsExtractionError returns the ExtractionError in err's chain, if any.
func AsExtractionError(err error) (*ExtractionError, bool) {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
