package extraction

import (
	"testing"

	"github.com/jonathan/course-ingest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDoc() map[string]any {
	return map[string]any{
		"title": "Algebra",
		"modules": []any{
			map[string]any{
				"title":   "Basics",
				"lessons": []any{map[string]any{"title": "Numbers"}},
			},
		},
	}
}

func TestCoerceCourse_Minimal(t *testing.T) {
	data, warnings, err := coerceCourse(validDoc())

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, types.LocalizedText{"en": "Algebra"}, data.Title)
	require.Len(t, data.Modules, 1)
	assert.Equal(t, "Numbers", data.Modules[0].Lessons[0].Title.Primary())
	assert.Nil(t, data.Description)
	assert.Nil(t, data.Outcomes)
}

func TestCoerceCourse_LocalizedTitles(t *testing.T) {
	doc := validDoc()
	doc["title"] = map[string]any{"EN": " Algebra ", "ru": "Алгебра"}

	data, _, err := coerceCourse(doc)

	require.NoError(t, err)
	assert.Equal(t, types.LocalizedText{"en": "Algebra", "ru": "Алгебра"}, data.Title)
}

func TestCoerceCourse_OptionalFieldsLenient(t *testing.T) {
	doc := validDoc()
	doc["description"] = 42
	doc["level"] = true
	doc["duration_weeks"] = "8"
	doc["schedule_basis"] = "Self-Paced"
	doc["outcomes"] = []any{"solve equations", 3, "  "}
	lesson := doc["modules"].([]any)[0].(map[string]any)["lessons"].([]any)[0].(map[string]any)
	lesson["duration_minutes"] = -5
	lesson["description"] = map[string]any{"en": "counting", "fr": 1}

	data, warnings, err := coerceCourse(doc)

	require.NoError(t, err)
	assert.Nil(t, data.Description)
	assert.Empty(t, data.Level)
	assert.Equal(t, 8, data.DurationWeeks)
	assert.Equal(t, types.ScheduleSelfPaced, data.ScheduleBasis)
	assert.Equal(t, []string{"solve equations"}, data.Outcomes)
	assert.Equal(t, 0, data.Modules[0].Lessons[0].DurationMinutes)
	assert.Equal(t, types.LocalizedText{"en": "counting"}, data.Modules[0].Lessons[0].Description)

	assert.Contains(t, warnings, "description: dropped, not text")
	assert.Contains(t, warnings, "level: dropped, not a string")
	assert.Contains(t, warnings, "outcomes[1]: dropped, not a string")
	assert.Contains(t, warnings, "modules[0].lessons[0].duration_minutes: dropped, not a non-negative whole number")
}

func TestCoerceCourse_RequiredFieldsStrict(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		field  string
	}{
		{name: "missing title", mutate: func(d map[string]any) { delete(d, "title") }, field: "title"},
		{name: "numeric title", mutate: func(d map[string]any) { d["title"] = 5.0 }, field: "title"},
		{name: "title map with number", mutate: func(d map[string]any) { d["title"] = map[string]any{"en": 1.0} }, field: "title"},
		{name: "missing modules", mutate: func(d map[string]any) { delete(d, "modules") }, field: "modules"},
		{name: "modules not a list", mutate: func(d map[string]any) { d["modules"] = "Basics" }, field: "modules"},
		{name: "module not an object", mutate: func(d map[string]any) { d["modules"] = []any{"Basics"} }, field: "modules[0]"},
		{
			name: "lessons not a list",
			mutate: func(d map[string]any) {
				d["modules"].([]any)[0].(map[string]any)["lessons"] = map[string]any{}
			},
			field: "modules[0].lessons",
		},
		{
			name: "lesson without title",
			mutate: func(d map[string]any) {
				d["modules"].([]any)[0].(map[string]any)["lessons"] = []any{map[string]any{"description": "x"}}
			},
			field: "modules[0].lessons[0].title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)

			data, _, err := coerceCourse(doc)

			assert.Nil(t, data)
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.HasField(tt.field), "issues: %v", verr.Issues)
		})
	}
}

func TestNormalizeSchedule(t *testing.T) {
	assert.Equal(t, types.ScheduleWeekly, normalizeSchedule(" Weekly "))
	assert.Equal(t, types.ScheduleDaily, normalizeSchedule("per day"))
	assert.Equal(t, types.ScheduleSelfPaced, normalizeSchedule("on-demand"))
	assert.Equal(t, "monthly", normalizeSchedule("Monthly"))
	assert.Equal(t, "", normalizeSchedule(""))
}
