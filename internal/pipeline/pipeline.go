// Package pipeline wires upload recording, extraction, and materialization into the
// caller-facing operations: submit markdown, materialize an upload, and parse an invite.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/extraction"
	"github.com/jonathan/course-ingest/internal/ingestion"
	"github.com/jonathan/course-ingest/internal/invite"
	"github.com/jonathan/course-ingest/internal/logger"
	"github.com/jonathan/course-ingest/internal/materialize"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
)

// Step names reported through ProgressEvent.
const (
	StepUpload      = "upload"
	StepExtract     = "extract"
	StepRecord      = "record"
	StepMaterialize = "materialize"
)

// recordTimeout bounds writing an extraction failure after the caller's context is done.
const recordTimeout = 5 * time.Second

// ProgressEvent represents a progress update during a pipeline operation
type ProgressEvent struct {
	Step     string    `json:"step"`
	UploadID uuid.UUID `json:"upload_id"`
	Message  string    `json:"message"`
	Failed   bool      `json:"failed,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Extractor is the extraction boundary the pipeline depends on.
type Extractor interface {
	ExtractDetailed(ctx context.Context, markdown string) (*extraction.Result, error)
}

// Options configures a Pipeline.
type Options struct {
	// ExtractionTimeout bounds the extraction call when positive. The caller's own
	// deadline still applies when it is shorter.
	ExtractionTimeout time.Duration
	OnProgress        ProgressCallback
}

// Pipeline holds no state across calls beyond its collaborators.
type Pipeline struct {
	uploads      *ingestion.Manager
	store        store.Store
	extractor    Extractor
	materializer *materialize.Materializer
	log          *logger.Logger
	opts         Options
}

// New creates a Pipeline over s and extractor.
func New(s store.Store, extractor Extractor, log *logger.Logger, opts Options) *Pipeline {
	log = logger.OrNop(log)
	return &Pipeline{
		uploads:      ingestion.NewManager(s, log),
		store:        s,
		extractor:    extractor,
		materializer: materialize.New(s, log),
		log:          log,
		opts:         opts,
	}
}

// SubmitResult is a successfully parsed upload.
type SubmitResult struct {
	Upload   *types.UploadAttempt        `json:"upload"`
	Data     *types.StructuredCourseData `json:"structured_result"`
	Warnings []string                    `json:"warnings,omitempty"`
}

// Submit records rawText as a new upload, extracts its structure, and records the outcome.
// Failures after the upload exists are returned as *SubmitError carrying the upload id.
func (p *Pipeline) Submit(ctx context.Context, rawText, filename string) (*SubmitResult, error) {
	upload, err := p.uploads.BeginUpload(ctx, rawText, filename)
	if err != nil {
		return nil, err
	}
	p.emit(StepUpload, upload.ID, "upload recorded", false)

	res, err := p.extract(ctx, rawText)
	if err != nil {
		p.emit(StepExtract, upload.ID, err.Error(), true)
		if recordErr := p.recordFailed(ctx, upload.ID, err); recordErr != nil {
			p.log.Error("failed to record extraction failure", "upload_id", upload.ID, "error", recordErr)
			err = errors.Join(err, recordErr)
		}
		return nil, &SubmitError{UploadID: upload.ID, Err: err}
	}
	p.emit(StepExtract, upload.ID, fmt.Sprintf("%d module(s), %d lesson(s)", len(res.Data.Modules), res.Data.LessonCount()), false)

	if err := p.uploads.RecordParsed(ctx, upload.ID, res.Data); err != nil {
		p.emit(StepRecord, upload.ID, err.Error(), true)
		return nil, &SubmitError{UploadID: upload.ID, Err: err}
	}
	p.emit(StepRecord, upload.ID, "structured result stored", false)

	upload.Status = types.StatusParsed
	upload.StructuredResult = res.Data
	return &SubmitResult{Upload: upload, Data: res.Data, Warnings: res.Warnings}, nil
}

// recordFailed stores the failure even when ctx is what ended extraction.
func (p *Pipeline) recordFailed(ctx context.Context, id uuid.UUID, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	return p.uploads.RecordFailed(ctx, id, cause)
}

func (p *Pipeline) extract(ctx context.Context, rawText string) (*extraction.Result, error) {
	if p.opts.ExtractionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.ExtractionTimeout)
		defer cancel()
	}
	return p.extractor.ExtractDetailed(ctx, ingestion.CleanText(rawText))
}

// MaterializeInput identifies the upload to materialize. When Data is nil the upload's
// stored structured result is used.
type MaterializeInput struct {
	UploadID     uuid.UUID
	Data         *types.StructuredCourseData
	StartDate    time.Time
	InstructorID *uuid.UUID
}

// Materialize creates the course for an upload and marks the upload created.
// On *materialize.DuplicateMaterializationError the existing course (when readable) is
// returned together with the error.
func (p *Pipeline) Materialize(ctx context.Context, in MaterializeInput) (*types.MaterializedCourse, error) {
	data := in.Data
	if data == nil {
		stored, err := p.storedResult(ctx, in.UploadID)
		if err != nil {
			return nil, err
		}
		data = stored
	}

	course, err := p.materializer.Materialize(ctx, materialize.Request{
		Data:         data,
		UploadID:     in.UploadID,
		StartDate:    in.StartDate,
		InstructorID: in.InstructorID,
	})
	if err != nil {
		var dup *materialize.DuplicateMaterializationError
		if errors.As(err, &dup) {
			p.emit(StepMaterialize, in.UploadID, dup.Error(), true)
			return dup.Existing, err
		}
		p.emit(StepMaterialize, in.UploadID, err.Error(), true)
		return nil, err
	}
	p.emit(StepMaterialize, in.UploadID, "course "+course.ID.String()+" created", false)

	// The course exists either way; a stale upload status is only logged.
	if err := p.uploads.MarkCreated(ctx, in.UploadID, course.ID); err != nil {
		p.log.Warn("failed to mark upload created", "upload_id", in.UploadID, "course_id", course.ID, "error", err)
	}
	return course, nil
}

func (p *Pipeline) storedResult(ctx context.Context, uploadID uuid.UUID) (*types.StructuredCourseData, error) {
	upload, err := p.uploads.Get(ctx, uploadID)
	if err != nil {
		return nil, store.Wrap("get upload", err)
	}
	if upload == nil {
		return nil, store.Wrap("get upload", fmt.Errorf("%w: upload %s", store.ErrNotFound, uploadID))
	}
	if upload.StructuredResult == nil {
		return nil, &types.ValidationError{Issues: []types.ValidationIssue{{
			Field:   "structured_data",
			Message: fmt.Sprintf("upload is %s and has no structured result", upload.Status),
		}}}
	}
	return upload.StructuredResult, nil
}

// GetUpload returns the upload record, or nil when it does not exist.
func (p *Pipeline) GetUpload(ctx context.Context, id uuid.UUID) (*types.UploadAttempt, error) {
	return p.uploads.Get(ctx, id)
}

// ListUploads lists uploads newest first.
func (p *Pipeline) ListUploads(ctx context.Context, filter store.UploadFilter) ([]types.UploadAttempt, error) {
	uploads, err := p.store.ListUploads(ctx, filter)
	return uploads, store.Wrap("list uploads", err)
}

// UploadEvents returns an upload's audit trail in write order.
func (p *Pipeline) UploadEvents(ctx context.Context, id uuid.UUID) ([]types.UploadEvent, error) {
	events, err := p.store.ListUploadEvents(ctx, id)
	return events, store.Wrap("list upload events", err)
}

// GetCourse returns a materialized course, or nil when it does not exist.
func (p *Pipeline) GetCourse(ctx context.Context, id uuid.UUID) (*types.MaterializedCourse, error) {
	course, err := p.store.GetMaterializedCourse(ctx, id)
	return course, store.Wrap("get course", err)
}

// ExtractInvite pulls meeting fields out of pasted invite text.
func (p *Pipeline) ExtractInvite(text string) invite.ParsedInvite {
	return invite.Parse(text)
}

// ExtractInviteHTML is ExtractInvite for invites copied as HTML.
func (p *Pipeline) ExtractInviteHTML(markup string) (invite.ParsedInvite, error) {
	return invite.ParseHTML(markup)
}

func (p *Pipeline) emit(step string, uploadID uuid.UUID, message string, failed bool) {
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(ProgressEvent{Step: step, UploadID: uploadID, Message: message, Failed: failed})
	}
}
