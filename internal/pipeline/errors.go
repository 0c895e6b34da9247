package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// SubmitError is a Submit failure that happened after the upload was recorded.
type SubmitError struct {
	UploadID uuid.UUID
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.UploadID, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
