package materialize

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/types"
)

// DuplicateMaterializationError means a course already exists for the upload.
// Callers should treat it as "already done" and show Existing.
type DuplicateMaterializationError struct {
	UploadID         uuid.UUID
	ExistingCourseID uuid.UUID // uuid.Nil when the existing course could not be read back
	Existing         *types.MaterializedCourse
	Cause            error
}

func (e *DuplicateMaterializationError) Error() string {
	if e.ExistingCourseID == uuid.Nil {
		return fmt.Sprintf("upload %s is already materialized", e.UploadID)
	}
	return fmt.Sprintf("upload %s is already materialized as course %s", e.UploadID, e.ExistingCourseID)
}

func (e *DuplicateMaterializationError) Unwrap() error {
	return e.Cause
}

// IsDuplicate reports whether err is a DuplicateMaterializationError.
func IsDuplicate(err error) bool {
	var dup *DuplicateMaterializationError
	return errors.As(err, &dup)
}
