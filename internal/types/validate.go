package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationIssue is a single invariant violation at a field path.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports structural invariant violations on data claimed to be parsed.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// HasField reports whether any issue targets the given field path.
func (e *ValidationError) HasField(field string) bool {
	for _, issue := range e.Issues {
		if issue.Field == field {
			return true
		}
	}
	return false
}

var validate = newValidator()

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs tag validation on any request struct and converts failures into a ValidationError.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Issues: []ValidationIssue{{Field: "(root)", Message: err.Error()}}}
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Issues = append(out.Issues, ValidationIssue{
			Field:   fieldPath(fe.Namespace()),
			Message: tagMessage(fe),
		})
	}
	return out
}

// ValidateCourseData checks the required-field invariants of structured course data:
// a non-blank title, at least one module, and every module titled with at least one titled lesson.
func ValidateCourseData(data *StructuredCourseData) error {
	if data == nil {
		return &ValidationError{Issues: []ValidationIssue{{Field: "(root)", Message: "course data is missing"}}}
	}

	out := &ValidationError{}
	if err := ValidateStruct(data); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			out.Issues = append(out.Issues, ve.Issues...)
		}
	}

	if len(data.Title) > 0 && data.Title.IsBlank() {
		out.Issues = append(out.Issues, ValidationIssue{Field: "title", Message: "must contain non-blank text"})
	}
	for i, m := range data.Modules {
		if len(m.Title) > 0 && m.Title.IsBlank() {
			out.Issues = append(out.Issues, ValidationIssue{
				Field:   fmt.Sprintf("modules[%d].title", i),
				Message: "must contain non-blank text",
			})
		}
		for j, l := range m.Lessons {
			if len(l.Title) > 0 && l.Title.IsBlank() {
				out.Issues = append(out.Issues, ValidationIssue{
					Field:   fmt.Sprintf("modules[%d].lessons[%d].title", i, j),
					Message: "must contain non-blank text",
				})
			}
		}
	}

	if len(out.Issues) > 0 {
		return out
	}
	return nil
}

// fieldPath drops the top-level struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
