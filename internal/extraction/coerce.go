package extraction

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/course-ingest/internal/types"
)

// coercer converts an untyped course document into StructuredCourseData.
// Required fields with the wrong type become issues; optional ones are dropped with a warning.
type coercer struct {
	issues   []types.ValidationIssue
	warnings []string
}

func (c *coercer) issue(field, msg string) {
	c.issues = append(c.issues, types.ValidationIssue{Field: field, Message: msg})
}

func (c *coercer) warn(field, msg string) {
	c.warnings = append(c.warnings, fmt.Sprintf("%s: %s", field, msg))
}

func coerceCourse(doc map[string]any) (*types.StructuredCourseData, []string, error) {
	c := &coercer{}
	data := &types.StructuredCourseData{
		Title:         c.requiredText("title", doc["title"]),
		Description:   c.optionalText("description", doc["description"]),
		Level:         c.optionalString("level", doc["level"]),
		ScheduleBasis: normalizeSchedule(c.optionalString("schedule_basis", doc["schedule_basis"])),
		DurationWeeks: c.optionalCount("duration_weeks", doc["duration_weeks"]),
		Outcomes:      c.optionalStrings("outcomes", doc["outcomes"]),
	}

	modules, ok := doc["modules"].([]any)
	switch {
	case !hasKey(doc, "modules"):
		c.issue("modules", "is required")
	case !ok:
		c.issue("modules", "must be a list")
	}
	for i, raw := range modules {
		path := fmt.Sprintf("modules[%d]", i)
		m, ok := raw.(map[string]any)
		if !ok {
			c.issue(path, "must be an object")
			continue
		}
		data.Modules = append(data.Modules, c.module(path, m))
	}

	if len(c.issues) > 0 {
		return nil, c.warnings, &types.ValidationError{Issues: c.issues}
	}
	return data, c.warnings, nil
}

func (c *coercer) module(path string, m map[string]any) types.Module {
	module := types.Module{
		Title:       c.requiredText(path+".title", m["title"]),
		Description: c.optionalText(path+".description", m["description"]),
	}

	lessons, ok := m["lessons"].([]any)
	switch {
	case !hasKey(m, "lessons"):
		c.issue(path+".lessons", "is required")
	case !ok:
		c.issue(path+".lessons", "must be a list")
	}
	for j, raw := range lessons {
		lpath := fmt.Sprintf("%s.lessons[%d]", path, j)
		l, ok := raw.(map[string]any)
		if !ok {
			c.issue(lpath, "must be an object")
			continue
		}
		module.Lessons = append(module.Lessons, types.Lesson{
			Title:           c.requiredText(lpath+".title", l["title"]),
			Description:     c.optionalText(lpath+".description", l["description"]),
			DurationMinutes: c.optionalCount(lpath+".duration_minutes", l["duration_minutes"]),
		})
	}
	return module
}

func (c *coercer) requiredText(field string, v any) types.LocalizedText {
	if v == nil {
		c.issue(field, "is required")
		return nil
	}
	text, ok := toLocalizedText(v, true)
	if !ok {
		c.issue(field, "must be a string or a map of language to string")
		return nil
	}
	return text
}

func (c *coercer) optionalText(field string, v any) types.LocalizedText {
	if v == nil {
		return nil
	}
	text, ok := toLocalizedText(v, false)
	if !ok {
		c.warn(field, "dropped, not text")
		return nil
	}
	if len(text) == 0 {
		return nil
	}
	return text
}

// toLocalizedText accepts a plain string (stored under DefaultLanguage) or a language map.
// In strict mode every map value must be a string; otherwise non-string values are skipped.
func toLocalizedText(v any, strict bool) (types.LocalizedText, bool) {
	switch t := v.(type) {
	case string:
		return types.LocalizedText{types.DefaultLanguage: strings.TrimSpace(t)}, true
	case map[string]any:
		out := make(types.LocalizedText, len(t))
		for lang, raw := range t {
			s, ok := raw.(string)
			if !ok {
				if strict {
					return nil, false
				}
				continue
			}
			out[strings.ToLower(strings.TrimSpace(lang))] = strings.TrimSpace(s)
		}
		return out, true
	}
	return nil, false
}

func (c *coercer) optionalString(field string, v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		c.warn(field, "dropped, not a string")
		return ""
	}
	return strings.TrimSpace(s)
}

func (c *coercer) optionalCount(field string, v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		if t >= 0 && t == math.Trunc(t) && t <= math.MaxInt32 {
			return int(t)
		}
	case int:
		if t >= 0 {
			return t
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n >= 0 {
			return n
		}
	}
	c.warn(field, "dropped, not a non-negative whole number")
	return 0
}

func (c *coercer) optionalStrings(field string, v any) []string {
	if v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		if s, isString := v.(string); isString && strings.TrimSpace(s) != "" {
			return []string{strings.TrimSpace(s)}
		}
		c.warn(field, "dropped, not a list")
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			c.warn(fmt.Sprintf("%s[%d]", field, i), "dropped, not a string")
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeSchedule(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch strings.NewReplacer("-", "_", " ", "_").Replace(s) {
	case "weekly", "week", "per_week":
		return types.ScheduleWeekly
	case "daily", "day", "per_day":
		return types.ScheduleDaily
	case "self_paced", "selfpaced", "on_demand":
		return types.ScheduleSelfPaced
	}
	return s
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
