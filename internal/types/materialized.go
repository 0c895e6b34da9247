package types

import (
	"time"

	"github.com/google/uuid"
)

// MaterializedCourse is the durable course created from a parsed upload.
// At most one exists per UploadID.
type MaterializedCourse struct {
	ID            uuid.UUID            `json:"id"`
	UploadID      uuid.UUID            `json:"upload_id"`
	Title         LocalizedText        `json:"title"`
	Description   LocalizedText        `json:"description,omitempty"`
	Level         string               `json:"level,omitempty"`
	ScheduleBasis string               `json:"schedule_basis,omitempty"`
	DurationWeeks int                  `json:"duration_weeks,omitempty"`
	Outcomes      []string             `json:"outcomes,omitempty"`
	StartDate     time.Time            `json:"start_date"`
	InstructorID  *uuid.UUID           `json:"instructor_id,omitempty"`
	Modules       []MaterializedModule `json:"modules"`
	CreatedAt     time.Time            `json:"created_at"`
}

// MaterializedModule is a stored module. Position is its 0-based sort key within the course.
type MaterializedModule struct {
	ID          uuid.UUID            `json:"id"`
	Position    int                  `json:"position"`
	Title       LocalizedText        `json:"title"`
	Description LocalizedText        `json:"description,omitempty"`
	UnlockAt    time.Time            `json:"unlock_at"`
	Lessons     []MaterializedLesson `json:"lessons"`
}

// MaterializedLesson is a stored lesson. Position is its 0-based sort key within the module.
type MaterializedLesson struct {
	ID              uuid.UUID     `json:"id"`
	Position        int           `json:"position"`
	Title           LocalizedText `json:"title"`
	Description     LocalizedText `json:"description,omitempty"`
	DurationMinutes int           `json:"duration_minutes,omitempty"`
}

// LessonCount returns the total number of lessons across all modules.
func (c *MaterializedCourse) LessonCount() int {
	count := 0
	for _, m := range c.Modules {
		count += len(m.Lessons)
	}
	return count
}
