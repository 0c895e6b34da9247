package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/course-ingest/internal/logger"
	"github.com/jonathan/course-ingest/internal/schemas"
	"github.com/jonathan/course-ingest/internal/types"
	files "github.com/jonathan/course-ingest/schemas"
)

// Result is a successful extraction together with any optional fields that were dropped.
type Result struct {
	Data     *types.StructuredCourseData
	Warnings []string
	Raw      json.RawMessage
}

// Adapter calls an extraction Service and validates its output before anything downstream sees it.
// It performs no retries.
type Adapter struct {
	service Service
	log     *logger.Logger
}

// NewAdapter creates an Adapter around service.
func NewAdapter(service Service, log *logger.Logger) *Adapter {
	return &Adapter{service: service, log: logger.OrNop(log)}
}

// Extract returns validated course data or an *ExtractionError.
func (a *Adapter) Extract(ctx context.Context, markdown string) (*types.StructuredCourseData, error) {
	res, err := a.ExtractDetailed(ctx, markdown)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// ExtractDetailed is Extract plus coercion warnings and the raw service reply.
func (a *Adapter) ExtractDetailed(ctx context.Context, markdown string) (*Result, error) {
	raw, err := a.service.ExtractCourseStructure(ctx, markdown)
	if err != nil {
		return nil, classifyServiceError(ctx, err)
	}

	res, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	if len(res.Warnings) > 0 {
		a.log.Warn("dropped optional course fields", "count", len(res.Warnings), "fields", res.Warnings)
	}
	a.log.Debug("extracted course structure",
		"modules", len(res.Data.Modules),
		"lessons", res.Data.LessonCount(),
	)
	return res, nil
}

// Decode validates a course structure document the same way a service reply is validated.
// It is also used for structure documents edited by hand before materialization.
func Decode(raw json.RawMessage) (*Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, &ExtractionError{Kind: KindInvalidShape, Message: "empty response"}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ExtractionError{Kind: KindInvalidShape, Message: "response is not valid JSON", Cause: err}
	}
	doc, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ExtractionError{Kind: KindInvalidShape, Message: "response is not a JSON object"}
	}

	if msg, failed := failureMessage(doc); failed {
		return nil, &ExtractionError{Kind: KindServiceFailure, Message: msg}
	}

	if err := schemas.Validate(files.CourseStructure, string(raw)); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) {
			return nil, &ExtractionError{
				Kind:    KindInvalidShape,
				Message: "response does not match the course structure",
				Fields:  verr.Fields(),
				Cause:   err,
			}
		}
		return nil, fmt.Errorf("failed to check course structure: %w", err)
	}

	data, warnings, err := coerceCourse(doc)
	if err != nil {
		return nil, shapeError("response fields have the wrong type", err)
	}
	if err := types.ValidateCourseData(data); err != nil {
		return nil, shapeError("course is missing required content", err)
	}

	return &Result{Data: data, Warnings: warnings, Raw: raw}, nil
}

func shapeError(msg string, err error) *ExtractionError {
	ee := &ExtractionError{Kind: KindInvalidShape, Message: msg, Cause: err}
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		for _, issue := range verr.Issues {
			ee.Fields = append(ee.Fields, issue.Field)
		}
	}
	return ee
}

type timeoutError interface {
	Timeout() bool
}

// classifyServiceError separates deadline expiry from any other transport failure.
func classifyServiceError(ctx context.Context, err error) *ExtractionError {
	var te timeoutError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &te) && te.Timeout():
		return &ExtractionError{Kind: KindTimeout, Message: "extraction service did not answer before the deadline", Cause: err}
	case errors.Is(err, context.Canceled):
		return &ExtractionError{Kind: KindUnavailable, Message: "extraction request was cancelled", Cause: err}
	default:
		return &ExtractionError{Kind: KindUnavailable, Message: "extraction service call failed", Cause: err}
	}
}

// failureMessage detects explicit failure documents: {"error": ...} or {"success": false, ...}.
func failureMessage(doc map[string]any) (string, bool) {
	if success, ok := doc["success"].(bool); ok && !success {
		return describeFailure(doc), true
	}
	if v, ok := doc["error"]; ok && v != nil && v != false && v != "" {
		return describeFailure(doc), true
	}
	return "", false
}

func describeFailure(doc map[string]any) string {
	for _, key := range []string{"error", "message", "reason"} {
		switch v := doc[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return "extraction service reported a failure"
}
