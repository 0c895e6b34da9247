package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/logger"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCourse() *types.StructuredCourseData {
	return &types.StructuredCourseData{
		Title: types.LocalizedText{"en": "Algebra"},
		Modules: []types.Module{{
			Title:   types.LocalizedText{"en": "Foundations"},
			Lessons: []types.Lesson{{Title: types.LocalizedText{"en": "Variables"}}},
		}},
	}
}

// countingStore counts writes and can fail them.
type countingStore struct {
	*store.Memory
	inserts int
	updates int
	failErr error
}

func (s *countingStore) InsertUpload(ctx context.Context, u *types.UploadAttempt) error {
	s.inserts++
	if s.failErr != nil {
		return s.failErr
	}
	return s.Memory.InsertUpload(ctx, u)
}

func (s *countingStore) UpdateUpload(ctx context.Context, id uuid.UUID, u store.UploadUpdate) error {
	s.updates++
	if s.failErr != nil {
		return s.failErr
	}
	return s.Memory.UpdateUpload(ctx, id, u)
}

func newTestManager() (*Manager, *countingStore) {
	s := &countingStore{Memory: store.NewMemory()}
	return NewManager(s, logger.Nop()), s
}

func TestBeginUpload(t *testing.T) {
	m, s := newTestManager()
	raw := "  # Algebra\r\n\n\n## Module 1  \n"

	upload, err := m.BeginUpload(context.Background(), raw, "algebra.md")

	require.NoError(t, err)
	assert.Equal(t, 1, s.inserts)
	assert.NotEqual(t, uuid.Nil, upload.ID)
	assert.Equal(t, types.StatusParsing, upload.Status)
	assert.Nil(t, upload.StructuredResult)

	stored, err := m.Get(context.Background(), upload.ID)
	require.NoError(t, err)
	assert.Equal(t, raw, stored.RawText, "raw text must be stored verbatim")
	assert.Equal(t, "algebra.md", stored.Filename)
}

func TestBeginUpload_DefaultFilename(t *testing.T) {
	for _, name := range []string{"", "   "} {
		m, _ := newTestManager()
		upload, err := m.BeginUpload(context.Background(), "# A", name)
		require.NoError(t, err)
		assert.Equal(t, types.DefaultFilename, upload.Filename)
	}
}

func TestRecordParsed(t *testing.T) {
	m, s := newTestManager()
	ctx := context.Background()
	upload, err := m.BeginUpload(ctx, "# Algebra", "")
	require.NoError(t, err)

	require.NoError(t, m.RecordParsed(ctx, upload.ID, sampleCourse()))

	assert.Equal(t, 1, s.updates)
	stored, err := m.Get(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusParsed, stored.Status)
	require.NotNil(t, stored.StructuredResult)
	assert.Equal(t, "Algebra", stored.StructuredResult.Title.Primary())

	events, err := s.ListUploadEvents(ctx, upload.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "extracted 1 module(s), 1 lesson(s)", events[1].Detail)
}

func TestRecordParsed_Twice_LastWriteWins(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	upload, err := m.BeginUpload(ctx, "# Algebra", "")
	require.NoError(t, err)

	second := sampleCourse()
	second.Title = types.LocalizedText{"en": "Algebra II"}
	require.NoError(t, m.RecordParsed(ctx, upload.ID, sampleCourse()))
	require.NoError(t, m.RecordParsed(ctx, upload.ID, second))

	stored, err := m.Get(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra II", stored.StructuredResult.Title.Primary())
}

func TestRecordParsed_NilData(t *testing.T) {
	m, s := newTestManager()
	err := m.RecordParsed(context.Background(), uuid.New(), nil)
	assert.Error(t, err)
	assert.Equal(t, 0, s.updates)
}

func TestRecordFailed(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	upload, err := m.BeginUpload(ctx, "shopping list", "")
	require.NoError(t, err)

	require.NoError(t, m.RecordFailed(ctx, upload.ID, errors.New("not a course")))

	stored, err := m.Get(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "not a course", *stored.ErrorMessage)
	assert.Nil(t, stored.StructuredResult)

	err = m.RecordParsed(ctx, upload.ID, sampleCourse())
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestMarkCreated(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	upload, err := m.BeginUpload(ctx, "# Algebra", "")
	require.NoError(t, err)

	err = m.MarkCreated(ctx, upload.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrInvalidTransition, "parsing cannot jump to created")

	require.NoError(t, m.RecordParsed(ctx, upload.ID, sampleCourse()))
	require.NoError(t, m.MarkCreated(ctx, upload.ID, uuid.New()))

	stored, err := m.Get(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCreated, stored.Status)
	assert.NotNil(t, stored.StructuredResult, "result is kept when marking created")
}

func TestManager_PersistenceErrorsPropagate(t *testing.T) {
	m, s := newTestManager()
	s.failErr = store.Wrap("insert upload", errors.New("connection refused"))

	_, err := m.BeginUpload(context.Background(), "# A", "")
	var pe *store.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, s.inserts, "no retries")

	err = m.RecordParsed(context.Background(), uuid.New(), sampleCourse())
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, s.updates, "no retries")
}

func TestRecordParsed_UnknownUpload(t *testing.T) {
	m, _ := newTestManager()
	err := m.RecordParsed(context.Background(), uuid.New(), sampleCourse())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
