// Package store defines the storage collaborator used by the ingestion pipeline
// and an in-memory implementation of it.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/types"
)

// UploadUpdate describes a status transition for an upload attempt.
// StructuredResult and ErrorMessage are written only when non-nil.
type UploadUpdate struct {
	Status           types.UploadStatus
	StructuredResult *types.StructuredCourseData
	ErrorMessage     *string
	Detail           string // recorded on the audit event
}

// UploadFilter holds optional filters for listing uploads.
type UploadFilter struct {
	Status types.UploadStatus
	Limit  int
}

// UploadStore persists upload attempts and their audit trail.
// Every insert and update appends exactly one audit event in the same write.
type UploadStore interface {
	InsertUpload(ctx context.Context, upload *types.UploadAttempt) error
	// UpdateUpload applies the update only if the stored status is in update.Status.AllowedFrom();
	// otherwise it fails with ErrInvalidTransition.
	UpdateUpload(ctx context.Context, id uuid.UUID, update UploadUpdate) error
	GetUpload(ctx context.Context, id uuid.UUID) (*types.UploadAttempt, error)
	ListUploads(ctx context.Context, filter UploadFilter) ([]types.UploadAttempt, error)
	ListUploadEvents(ctx context.Context, id uuid.UUID) ([]types.UploadEvent, error)
}

// CourseStore persists materialized courses. The upload reference is unique:
// a second insert for the same upload fails with ErrConflict.
type CourseStore interface {
	// FindMaterializedByUploadID returns nil, nil when no course references the upload.
	FindMaterializedByUploadID(ctx context.Context, uploadID uuid.UUID) (*types.MaterializedCourse, error)
	InsertMaterializedCourse(ctx context.Context, course *types.MaterializedCourse) error
	// GetMaterializedCourse returns nil, nil when the course does not exist.
	GetMaterializedCourse(ctx context.Context, id uuid.UUID) (*types.MaterializedCourse, error)
}

// Store is the full storage collaborator.
type Store interface {
	UploadStore
	CourseStore
}

// DefaultListLimit caps list queries when no limit is given.
const DefaultListLimit = 50
