package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/extraction"
	"github.com/jonathan/course-ingest/internal/materialize"
	"github.com/jonathan/course-ingest/internal/pipeline"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
)

// CreateUploadRequest is the body for POST /uploads
type CreateUploadRequest struct {
	RawText  string `json:"raw_text"`
	Filename string `json:"filename,omitempty"`
}

// UploadFailureResponse is returned when an upload was recorded but extraction failed
type UploadFailureResponse struct {
	Error     string   `json:"error"`
	UploadID  string   `json:"upload_id"`
	Kind      string   `json:"kind,omitempty"`
	Fields    []string `json:"fields,omitempty"`
	Retryable bool     `json:"retryable"`
}

// MaterializeRequest is the body for POST /uploads/{id}/materialize.
// StructuredData is optional; the upload's stored result is used when it is absent.
type MaterializeRequest struct {
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	StartDate      string          `json:"start_date"`
	InstructorID   *uuid.UUID      `json:"instructor_id,omitempty"`
}

// DuplicateResponse is the 409 body for an upload that is already materialized
type DuplicateResponse struct {
	Error            string `json:"error"`
	ExistingCourseID string `json:"existing_course_id,omitempty"`
}

// ParseInviteRequest carries exactly one of Text or HTML
type ParseInviteRequest struct {
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
}

// handleCreateUpload records raw course text and extracts its structure
func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	var req CreateUploadRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RawText) == "" {
		s.errorResponse(w, http.StatusBadRequest, "raw_text is required")
		return
	}

	res, err := s.pipeline.Submit(r.Context(), req.RawText, req.Filename)
	if err != nil {
		var se *pipeline.SubmitError
		if !errors.As(err, &se) {
			s.log.Error("failed to record upload", "error", err)
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		resp := UploadFailureResponse{Error: se.Err.Error(), UploadID: se.UploadID.String()}
		if ee, ok := extraction.AsExtractionError(err); ok {
			resp.Kind = string(ee.Kind)
			resp.Fields = ee.Fields
			resp.Retryable = ee.Retryable()
		}
		s.jsonResponse(w, HTTPStatus(err), resp)
		return
	}

	s.jsonResponse(w, http.StatusCreated, res)
}

// handleListUploads lists uploads, newest first. Query: status, limit.
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	filter := store.UploadFilter{Status: types.UploadStatus(r.URL.Query().Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "unknown status: "+string(filter.Status))
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	uploads, err := s.pipeline.ListUploads(r.Context(), filter)
	if err != nil {
		s.internalError(w, "failed to list uploads", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"uploads": uploads, "count": len(uploads)})
}

// handleGetUpload returns one upload record
func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	upload, err := s.pipeline.GetUpload(r.Context(), id)
	if err != nil {
		s.internalError(w, "failed to get upload", err)
		return
	}
	if upload == nil {
		s.errorResponse(w, http.StatusNotFound, "upload not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, upload)
}

// handleUploadEvents returns an upload's audit trail
func (s *Server) handleUploadEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	upload, err := s.pipeline.GetUpload(r.Context(), id)
	if err != nil {
		s.internalError(w, "failed to get upload", err)
		return
	}
	if upload == nil {
		s.errorResponse(w, http.StatusNotFound, "upload not found")
		return
	}
	events, err := s.pipeline.UploadEvents(r.Context(), id)
	if err != nil {
		s.internalError(w, "failed to list upload events", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"upload_id": id, "events": events})
}

// handleMaterialize turns a parsed upload into a course
func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req MaterializeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	start, err := ParseStartDate(req.StartDate)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	in := pipeline.MaterializeInput{UploadID: id, StartDate: start, InstructorID: req.InstructorID}
	if len(req.StructuredData) > 0 && string(req.StructuredData) != "null" {
		decoded, err := extraction.Decode(req.StructuredData)
		if err != nil {
			resp := map[string]any{"error": "structured_data: " + err.Error()}
			if ee, ok := extraction.AsExtractionError(err); ok && len(ee.Fields) > 0 {
				resp["fields"] = ee.Fields
			}
			s.jsonResponse(w, http.StatusBadRequest, resp)
			return
		}
		in.Data = decoded.Data
	}

	course, err := s.pipeline.Materialize(r.Context(), in)
	if err != nil {
		var dup *materialize.DuplicateMaterializationError
		if errors.As(err, &dup) {
			resp := DuplicateResponse{Error: dup.Error()}
			if dup.ExistingCourseID != uuid.Nil {
				resp.ExistingCourseID = dup.ExistingCourseID.String()
			}
			s.jsonResponse(w, http.StatusConflict, resp)
			return
		}
		status := HTTPStatus(err)
		if status == http.StatusInternalServerError {
			s.internalError(w, "failed to materialize course", err)
			return
		}
		s.errorResponse(w, status, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, course)
}

// handleGetCourse returns a materialized course with its curriculum
func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	course, err := s.pipeline.GetCourse(r.Context(), id)
	if err != nil {
		s.internalError(w, "failed to get course", err)
		return
	}
	if course == nil {
		s.errorResponse(w, http.StatusNotFound, "course not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, course)
}

// handleParseInvite extracts meeting fields from pasted invite text or HTML
func (s *Server) handleParseInvite(w http.ResponseWriter, r *http.Request) {
	var req ParseInviteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	switch {
	case req.Text != "" && req.HTML != "":
		s.errorResponse(w, http.StatusBadRequest, "send either text or html, not both")
	case req.HTML != "":
		parsed, err := s.pipeline.ExtractInviteHTML(req.HTML)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid html: "+err.Error())
			return
		}
		s.jsonResponse(w, http.StatusOK, parsed)
	default:
		s.jsonResponse(w, http.StatusOK, s.pipeline.ExtractInvite(req.Text))
	}
}

// ParseStartDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseStartDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &ErrValidation{Field: "start_date", Message: "is required"}
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, &ErrValidation{Field: "start_date", Message: "must be YYYY-MM-DD or RFC 3339"}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, "error", err)
	s.errorResponse(w, http.StatusInternalServerError, msg)
}
