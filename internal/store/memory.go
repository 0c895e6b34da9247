package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/types"
)

// Memory is an in-process Store. It enforces the same status and uniqueness rules as the
// PostgreSQL store and returns deep copies so callers cannot mutate stored records.
type Memory struct {
	mu        sync.RWMutex
	uploads   map[uuid.UUID]types.UploadAttempt
	events    map[uuid.UUID][]types.UploadEvent
	courses   map[uuid.UUID]types.MaterializedCourse
	byUpload  map[uuid.UUID]uuid.UUID
	nextEvent int64
	now       func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		uploads:  make(map[uuid.UUID]types.UploadAttempt),
		events:   make(map[uuid.UUID][]types.UploadEvent),
		courses:  make(map[uuid.UUID]types.MaterializedCourse),
		byUpload: make(map[uuid.UUID]uuid.UUID),
		now:      time.Now,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) InsertUpload(_ context.Context, upload *types.UploadAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.uploads[upload.ID]; exists {
		return &PersistenceError{Op: "insert upload", Err: fmt.Errorf("%w: upload %s", ErrConflict, upload.ID)}
	}
	now := m.now().UTC()
	upload.CreatedAt, upload.UpdatedAt = now, now
	m.uploads[upload.ID] = cloneUpload(*upload)
	m.appendEvent(upload.ID, upload.Status, "submitted "+upload.Filename, now)
	return nil
}

func (m *Memory) UpdateUpload(_ context.Context, id uuid.UUID, update UploadUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.uploads[id]
	if !ok {
		return &PersistenceError{Op: "update upload", Err: fmt.Errorf("%w: upload %s", ErrNotFound, id)}
	}
	if !current.Status.CanTransitionTo(update.Status) {
		return &PersistenceError{
			Op:  "update upload",
			Err: fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, update.Status),
		}
	}

	now := m.now().UTC()
	current.Status = update.Status
	if update.StructuredResult != nil {
		current.StructuredResult = cloneCourseData(update.StructuredResult)
	}
	if update.ErrorMessage != nil {
		msg := *update.ErrorMessage
		current.ErrorMessage = &msg
	}
	current.UpdatedAt = now
	m.uploads[id] = current
	m.appendEvent(id, update.Status, update.Detail, now)
	return nil
}

func (m *Memory) GetUpload(_ context.Context, id uuid.UUID) (*types.UploadAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	upload, ok := m.uploads[id]
	if !ok {
		return nil, nil
	}
	out := cloneUpload(upload)
	return &out, nil
}

func (m *Memory) ListUploads(_ context.Context, filter UploadFilter) ([]types.UploadAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	out := make([]types.UploadAttempt, 0, len(m.uploads))
	for _, u := range m.uploads {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, cloneUpload(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListUploadEvents(_ context.Context, id uuid.UUID) ([]types.UploadEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.events[id]
	out := make([]types.UploadEvent, len(events))
	copy(out, events)
	return out, nil
}

func (m *Memory) FindMaterializedByUploadID(_ context.Context, uploadID uuid.UUID) (*types.MaterializedCourse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	courseID, ok := m.byUpload[uploadID]
	if !ok {
		return nil, nil
	}
	out := cloneCourse(m.courses[courseID])
	return &out, nil
}

func (m *Memory) InsertMaterializedCourse(_ context.Context, course *types.MaterializedCourse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byUpload[course.UploadID]; ok {
		return &PersistenceError{
			Op:  "insert course",
			Err: fmt.Errorf("%w: upload %s already materialized as course %s", ErrConflict, course.UploadID, existing),
		}
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = m.now().UTC()
	}
	m.courses[course.ID] = cloneCourse(*course)
	m.byUpload[course.UploadID] = course.ID
	return nil
}

func (m *Memory) GetMaterializedCourse(_ context.Context, id uuid.UUID) (*types.MaterializedCourse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	course, ok := m.courses[id]
	if !ok {
		return nil, nil
	}
	out := cloneCourse(course)
	return &out, nil
}

// CourseCount returns the number of stored courses.
func (m *Memory) CourseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.courses)
}

// UploadCount returns the number of stored uploads.
func (m *Memory) UploadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.uploads)
}

func (m *Memory) appendEvent(id uuid.UUID, status types.UploadStatus, detail string, at time.Time) {
	m.nextEvent++
	m.events[id] = append(m.events[id], types.UploadEvent{
		ID:        m.nextEvent,
		UploadID:  id,
		Status:    status,
		Detail:    detail,
		CreatedAt: at,
	})
}

func cloneUpload(u types.UploadAttempt) types.UploadAttempt {
	u.StructuredResult = cloneCourseData(u.StructuredResult)
	if u.ErrorMessage != nil {
		msg := *u.ErrorMessage
		u.ErrorMessage = &msg
	}
	return u
}

func cloneText(t types.LocalizedText) types.LocalizedText {
	if t == nil {
		return nil
	}
	out := make(types.LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func cloneCourseData(d *types.StructuredCourseData) *types.StructuredCourseData {
	if d == nil {
		return nil
	}
	out := *d
	out.Title = cloneText(d.Title)
	out.Description = cloneText(d.Description)
	out.Outcomes = append([]string(nil), d.Outcomes...)
	out.Modules = make([]types.Module, len(d.Modules))
	for i, mod := range d.Modules {
		out.Modules[i] = types.Module{
			Title:       cloneText(mod.Title),
			Description: cloneText(mod.Description),
			Lessons:     make([]types.Lesson, len(mod.Lessons)),
		}
		for j, l := range mod.Lessons {
			out.Modules[i].Lessons[j] = types.Lesson{
				Title:           cloneText(l.Title),
				Description:     cloneText(l.Description),
				DurationMinutes: l.DurationMinutes,
			}
		}
	}
	return &out
}

func cloneCourse(c types.MaterializedCourse) types.MaterializedCourse {
	c.Title = cloneText(c.Title)
	c.Description = cloneText(c.Description)
	c.Outcomes = append([]string(nil), c.Outcomes...)
	if c.InstructorID != nil {
		id := *c.InstructorID
		c.InstructorID = &id
	}
	modules := make([]types.MaterializedModule, len(c.Modules))
	for i, mod := range c.Modules {
		mod.Title = cloneText(mod.Title)
		mod.Description = cloneText(mod.Description)
		lessons := make([]types.MaterializedLesson, len(mod.Lessons))
		for j, l := range mod.Lessons {
			l.Title = cloneText(l.Title)
			l.Description = cloneText(l.Description)
			lessons[j] = l
		}
		mod.Lessons = lessons
		modules[i] = mod
	}
	c.Modules = modules
	return c
}
