package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/course-ingest/internal/extraction"
	"github.com/jonathan/course-ingest/internal/materialize"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
)

// ErrValidation indicates a malformed request
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}

	var (
		reqErr  *ErrValidation
		dataErr *types.ValidationError
		dup     *materialize.DuplicateMaterializationError
	)
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict
	case errors.As(err, &reqErr), errors.As(err, &dataErr):
		return http.StatusBadRequest
	}

	if ee, ok := extraction.AsExtractionError(err); ok {
		switch ee.Kind {
		case extraction.KindTimeout:
			return http.StatusGatewayTimeout
		case extraction.KindUnavailable:
			return http.StatusBadGateway
		default:
			return http.StatusUnprocessableEntity
		}
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
