package types

import (
	"sort"
	"strings"
)

// DefaultLanguage is the language key used when a title arrives as a plain string.
const DefaultLanguage = "en"

// LocalizedText maps a language code to text in that language.
type LocalizedText map[string]string

// Primary returns the text for the first preferred language that has a non-blank value,
// falling back to DefaultLanguage and then to the alphabetically first language.
func (t LocalizedText) Primary(preferred ...string) string {
	for _, lang := range append(preferred, DefaultLanguage) {
		if v := strings.TrimSpace(t[lang]); v != "" {
			return v
		}
	}
	for _, lang := range t.Languages() {
		if v := strings.TrimSpace(t[lang]); v != "" {
			return v
		}
	}
	return ""
}

// Languages returns the language keys in sorted order.
func (t LocalizedText) Languages() []string {
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// IsBlank reports whether no language carries non-whitespace text.
func (t LocalizedText) IsBlank() bool {
	for _, v := range t {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Schedule bases recognised by materialization when computing module unlock dates.
const (
	ScheduleWeekly    = "weekly"
	ScheduleDaily     = "daily"
	ScheduleSelfPaced = "self_paced"
)

// StructuredCourseData is the validated output of extraction: a course and its ordered curriculum.
type StructuredCourseData struct {
	Title         LocalizedText `json:"title" validate:"required,min=1"`
	Description   LocalizedText `json:"description,omitempty"`
	Level         string        `json:"level,omitempty"`
	ScheduleBasis string        `json:"schedule_basis,omitempty"`
	DurationWeeks int           `json:"duration_weeks,omitempty" validate:"gte=0"`
	Outcomes      []string      `json:"outcomes,omitempty"`
	Modules       []Module      `json:"modules" validate:"required,min=1,dive"`
}

// Module is one ordered unit of the curriculum.
type Module struct {
	Title       LocalizedText `json:"title" validate:"required,min=1"`
	Description LocalizedText `json:"description,omitempty"`
	Lessons     []Lesson      `json:"lessons" validate:"required,min=1,dive"`
}

// Lesson is one ordered entry inside a module.
type Lesson struct {
	Title           LocalizedText `json:"title" validate:"required,min=1"`
	Description     LocalizedText `json:"description,omitempty"`
	DurationMinutes int           `json:"duration_minutes,omitempty" validate:"gte=0"`
}

// LessonCount returns the total number of lessons across all modules.
func (d *StructuredCourseData) LessonCount() int {
	count := 0
	for _, m := range d.Modules {
		count += len(m.Lessons)
	}
	return count
}
