// Package ingestion records upload attempts and prepares their text for extraction.
package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/logger"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
)

// Manager creates upload attempts and records their outcome. Each call is exactly one
// storage write; failures propagate without retries.
type Manager struct {
	store store.UploadStore
	log   *logger.Logger
	newID func() uuid.UUID
}

// NewManager creates a Manager over s.
func NewManager(s store.UploadStore, log *logger.Logger) *Manager {
	return &Manager{store: s, log: logger.OrNop(log), newID: uuid.New}
}

// BeginUpload records a new attempt in status parsing. rawText is stored verbatim;
// an empty filename becomes types.DefaultFilename.
func (m *Manager) BeginUpload(ctx context.Context, rawText, filename string) (*types.UploadAttempt, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = types.DefaultFilename
	}

	upload := &types.UploadAttempt{
		ID:       m.newID(),
		RawText:  rawText,
		Filename: filename,
		Status:   types.StatusParsing,
	}
	if err := m.store.InsertUpload(ctx, upload); err != nil {
		return nil, err
	}

	meta := NewMetadata(rawText, filename)
	m.log.Info("upload started",
		"upload_id", upload.ID,
		"filename", filename,
		"bytes", meta.Bytes,
		"hash", meta.Hash,
	)
	return upload, nil
}

// RecordParsed stores the structured result and moves the attempt to parsed.
func (m *Manager) RecordParsed(ctx context.Context, id uuid.UUID, data *types.StructuredCourseData) error {
	if data == nil {
		return fmt.Errorf("structured result is required")
	}
	detail := fmt.Sprintf("extracted %d module(s), %d lesson(s)", len(data.Modules), data.LessonCount())
	err := m.store.UpdateUpload(ctx, id, store.UploadUpdate{
		Status:           types.StatusParsed,
		StructuredResult: data,
		Detail:           detail,
	})
	if err != nil {
		return err
	}
	m.log.Info("upload parsed", "upload_id", id, "modules", len(data.Modules), "lessons", data.LessonCount())
	return nil
}

// RecordFailed moves the attempt to error with the cause's message.
func (m *Manager) RecordFailed(ctx context.Context, id uuid.UUID, cause error) error {
	msg := "extraction failed"
	if cause != nil {
		msg = cause.Error()
	}
	err := m.store.UpdateUpload(ctx, id, store.UploadUpdate{
		Status:       types.StatusError,
		ErrorMessage: &msg,
		Detail:       msg,
	})
	if err != nil {
		return err
	}
	m.log.Warn("upload failed", "upload_id", id, "error", msg)
	return nil
}

// MarkCreated moves a parsed attempt to created once its course exists.
func (m *Manager) MarkCreated(ctx context.Context, id, courseID uuid.UUID) error {
	err := m.store.UpdateUpload(ctx, id, store.UploadUpdate{
		Status: types.StatusCreated,
		Detail: "course " + courseID.String(),
	})
	if err != nil {
		return err
	}
	m.log.Info("upload materialized", "upload_id", id, "course_id", courseID)
	return nil
}

// Get returns the attempt, or nil when it does not exist.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*types.UploadAttempt, error) {
	return m.store.GetUpload(ctx, id)
}
