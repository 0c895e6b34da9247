// Package materialize turns validated course data into a durable course with an ordered curriculum.
package materialize

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/logger"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
)

// Request is the input to Materialize.
type Request struct {
	Data         *types.StructuredCourseData `json:"structured_data" validate:"-"`
	UploadID     uuid.UUID                   `json:"upload_id" validate:"required"`
	StartDate    time.Time                   `json:"start_date" validate:"required"`
	InstructorID *uuid.UUID                  `json:"instructor_id,omitempty" validate:"omitempty"`
}

// Materializer writes courses through a CourseStore. At-most-once per upload is enforced
// by the store's uniqueness constraint, not by a lock here.
type Materializer struct {
	store store.CourseStore
	log   *logger.Logger
	newID func() uuid.UUID
}

// New creates a Materializer.
func New(s store.CourseStore, log *logger.Logger) *Materializer {
	return &Materializer{store: s, log: logger.OrNop(log), newID: uuid.New}
}

// Materialize validates req, refuses uploads that already have a course, and stores the course
// with explicit positions for every module and lesson.
func (m *Materializer) Materialize(ctx context.Context, req Request) (*types.MaterializedCourse, error) {
	if err := types.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := types.ValidateCourseData(req.Data); err != nil {
		return nil, err
	}

	existing, err := m.store.FindMaterializedByUploadID(ctx, req.UploadID)
	if err != nil {
		return nil, store.Wrap("find course by upload", err)
	}
	if existing != nil {
		m.log.Info("upload already materialized", "upload_id", req.UploadID, "course_id", existing.ID)
		return nil, &DuplicateMaterializationError{
			UploadID:         req.UploadID,
			ExistingCourseID: existing.ID,
			Existing:         existing,
		}
	}

	course := m.build(req)
	if err := m.store.InsertMaterializedCourse(ctx, course); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, m.raceLost(ctx, req.UploadID, err)
		}
		return nil, store.Wrap("insert course", err)
	}

	m.log.Info("course materialized",
		"upload_id", req.UploadID,
		"course_id", course.ID,
		"modules", len(course.Modules),
		"lessons", course.LessonCount(),
	)
	return course, nil
}

// raceLost handles a uniqueness violation from a concurrent materialization of the same upload.
func (m *Materializer) raceLost(ctx context.Context, uploadID uuid.UUID, cause error) error {
	dup := &DuplicateMaterializationError{UploadID: uploadID, Cause: cause}
	existing, err := m.store.FindMaterializedByUploadID(ctx, uploadID)
	if err != nil {
		m.log.Warn("failed to read back existing course", "upload_id", uploadID, "error", err)
	} else if existing != nil {
		dup.ExistingCourseID = existing.ID
		dup.Existing = existing
	}
	m.log.Info("concurrent materialization lost the race", "upload_id", uploadID, "course_id", dup.ExistingCourseID)
	return dup
}

func (m *Materializer) build(req Request) *types.MaterializedCourse {
	data := req.Data
	start := startOfDay(req.StartDate)

	course := &types.MaterializedCourse{
		ID:            m.newID(),
		UploadID:      req.UploadID,
		Title:         data.Title,
		Description:   data.Description,
		Level:         data.Level,
		ScheduleBasis: data.ScheduleBasis,
		DurationWeeks: data.DurationWeeks,
		Outcomes:      data.Outcomes,
		StartDate:     start,
		InstructorID:  req.InstructorID,
		Modules:       make([]types.MaterializedModule, 0, len(data.Modules)),
	}

	for i, mod := range data.Modules {
		module := types.MaterializedModule{
			ID:          m.newID(),
			Position:    i,
			Title:       mod.Title,
			Description: mod.Description,
			UnlockAt:    UnlockAt(start, data.ScheduleBasis, i),
			Lessons:     make([]types.MaterializedLesson, 0, len(mod.Lessons)),
		}
		for j, l := range mod.Lessons {
			module.Lessons = append(module.Lessons, types.MaterializedLesson{
				ID:              m.newID(),
				Position:        j,
				Title:           l.Title,
				Description:     l.Description,
				DurationMinutes: l.DurationMinutes,
			})
		}
		course.Modules = append(course.Modules, module)
	}
	return course
}

// UnlockAt returns when the module at position opens: one week apart for weekly
// schedules, one day apart for daily ones, and at the start date otherwise.
func UnlockAt(start time.Time, scheduleBasis string, position int) time.Time {
	switch scheduleBasis {
	case types.ScheduleWeekly:
		return start.AddDate(0, 0, 7*position)
	case types.ScheduleDaily:
		return start.AddDate(0, 0, position)
	default:
		return start
	}
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
