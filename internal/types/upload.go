package types

import (
	"time"

	"github.com/google/uuid"
)

// DefaultFilename labels uploads submitted without a filename.
const DefaultFilename = "untitled.md"

// UploadStatus is the lifecycle state of an upload attempt. Transitions only move forward.
type UploadStatus string

const (
	StatusParsing UploadStatus = "parsing"
	StatusParsed  UploadStatus = "parsed"
	StatusError   UploadStatus = "error"
	StatusCreated UploadStatus = "created"
)

// Valid reports whether s is a known status.
func (s UploadStatus) Valid() bool {
	switch s {
	case StatusParsing, StatusParsed, StatusError, StatusCreated:
		return true
	}
	return false
}

// AllowedFrom lists the stored statuses from which a record may move to s.
// Rewriting the same status is allowed so a repeated write resolves as last-write-wins.
// StatusParsing is only ever set at creation.
func (s UploadStatus) AllowedFrom() []UploadStatus {
	switch s {
	case StatusParsed:
		return []UploadStatus{StatusParsing, StatusParsed}
	case StatusError:
		return []UploadStatus{StatusParsing, StatusError}
	case StatusCreated:
		return []UploadStatus{StatusParsed, StatusCreated}
	default:
		return nil
	}
}

// CanTransitionTo reports whether a record in status s may move to next.
func (s UploadStatus) CanTransitionTo(next UploadStatus) bool {
	for _, from := range next.AllowedFrom() {
		if from == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible except rewriting the same status.
func (s UploadStatus) IsTerminal() bool {
	return s == StatusError || s == StatusCreated
}

// UploadAttempt is one submission of raw course text. RawText is never modified after creation.
type UploadAttempt struct {
	ID               uuid.UUID             `json:"id"`
	RawText          string                `json:"raw_text"`
	Filename         string                `json:"filename"`
	Status           UploadStatus          `json:"status"`
	StructuredResult *StructuredCourseData `json:"structured_result"`
	ErrorMessage     *string               `json:"error_message,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// UploadEvent is one row of an upload's append-only audit trail.
type UploadEvent struct {
	ID        int64        `json:"id"`
	UploadID  uuid.UUID    `json:"upload_id"`
	Status    UploadStatus `json:"status"`
	Detail    string       `json:"detail,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
