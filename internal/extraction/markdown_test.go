package extraction

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractDoc(t *testing.T, markdown string) map[string]any {
	t.Helper()
	raw, err := NewMarkdownService().ExtractCourseStructure(context.Background(), markdown)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func lessonTitles(t *testing.T, doc map[string]any, module int) []string {
	t.Helper()
	modules := doc["modules"].([]any)
	lessons := modules[module].(map[string]any)["lessons"].([]any)
	titles := make([]string, 0, len(lessons))
	for _, l := range lessons {
		titles = append(titles, l.(map[string]any)["title"].(string))
	}
	return titles
}

func TestMarkdownService_HeadingDialect(t *testing.T) {
	md := `# Intro to Algebra

A gentle start.

## Module 1: Foundations
Numbers and symbols.

### Variables (30 min)
What a variable is.

### Expressions

## Module 2: Equations
### Linear equations (1h)
`
	doc := extractDoc(t, md)

	assert.Equal(t, "Intro to Algebra", doc["title"])
	assert.Equal(t, map[string]any{"en": "A gentle start."}, doc["description"])

	modules := doc["modules"].([]any)
	require.Len(t, modules, 2)
	first := modules[0].(map[string]any)
	assert.Equal(t, "Module 1: Foundations", first["title"])
	assert.Equal(t, map[string]any{"en": "Numbers and symbols."}, first["description"])
	assert.Equal(t, []string{"Variables", "Expressions"}, lessonTitles(t, doc, 0))

	variables := first["lessons"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(30), variables["duration_minutes"])
	assert.Equal(t, map[string]any{"en": "What a variable is."}, variables["description"])

	linear := modules[1].(map[string]any)["lessons"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(60), linear["duration_minutes"])
}

func TestMarkdownService_BulletDialect(t *testing.T) {
	md := `# Guitar Basics

## Week 1
- Holding the guitar
  - posture tips
- Tuning

## Week 2
1. First chords
2. Strumming
`
	doc := extractDoc(t, md)

	assert.Equal(t, []string{"Holding the guitar", "Tuning"}, lessonTitles(t, doc, 0))
	assert.Equal(t, []string{"First chords", "Strumming"}, lessonTitles(t, doc, 1))

	holding := doc["modules"].([]any)[0].(map[string]any)["lessons"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"en": "posture tips"}, holding["description"])
}

func TestMarkdownService_BulletsUnderHeadingLessonAreDescription(t *testing.T) {
	md := "# C\n## M\n### Lesson A\n- point one\n- point two\n"
	doc := extractDoc(t, md)

	assert.Equal(t, []string{"Lesson A"}, lessonTitles(t, doc, 0))
	lesson := doc["modules"].([]any)[0].(map[string]any)["lessons"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"en": "point one\npoint two"}, lesson["description"])
}

func TestMarkdownService_FrontMatter(t *testing.T) {
	md := `---
title:
  en: Algebra
  ru: Алгебра
level: beginner
schedule: weekly
duration_weeks: 6
outcomes:
  - solve linear equations
---
# Ignored heading title

## Learning outcomes
- also ignored because front matter wins

## Module 1
- Lesson 1
`
	doc := extractDoc(t, md)

	assert.Equal(t, map[string]any{"en": "Algebra", "ru": "Алгебра"}, doc["title"])
	assert.Equal(t, "beginner", doc["level"])
	assert.Equal(t, "weekly", doc["schedule_basis"])
	assert.Equal(t, float64(6), doc["duration_weeks"])
	assert.Equal(t, []any{"solve linear equations"}, doc["outcomes"])
	require.Len(t, doc["modules"].([]any), 1)
}

func TestMarkdownService_OutcomesSection(t *testing.T) {
	md := "# Course\n## What you'll learn\n- one\n- two\n## Module\n- Lesson\n"
	doc := extractDoc(t, md)

	assert.Equal(t, []any{"one", "two"}, doc["outcomes"])
	require.Len(t, doc["modules"].([]any), 1)
}

func TestMarkdownService_LanguageKeysTitles(t *testing.T) {
	md := "---\nlanguage: RU\n---\n# Алгебра\n## Модуль 1\n- Урок 1\n"
	doc := extractDoc(t, md)

	assert.Equal(t, map[string]any{"ru": "Алгебра"}, doc["title"])
	lesson := doc["modules"].([]any)[0].(map[string]any)["lessons"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"ru": "Урок 1"}, lesson["title"])
}

func TestMarkdownService_NotAnOutline(t *testing.T) {
	doc := extractDoc(t, "just a shopping list, milk and eggs")
	assert.Equal(t, "no course outline found", doc["error"])
}

func TestMarkdownService_MalformedFrontMatterIgnored(t *testing.T) {
	md := "---\ntitle: [unclosed\n---\n# Real Title\n## M\n- L\n"
	doc := extractDoc(t, md)

	assert.Equal(t, "Real Title", doc["title"])
}

func TestMarkdownService_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMarkdownService().ExtractCourseStructure(ctx, "# C")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLesson_Duration(t *testing.T) {
	tests := []struct {
		in      string
		title   string
		minutes int
	}{
		{"Intro (15 min)", "Intro", 15},
		{"Deep dive [2 hours]", "Deep dive", 120},
		{"Plain", "Plain", 0},
		{"Lesson 3 (draft)", "Lesson 3 (draft)", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l := newLesson(tt.in, false)
			assert.Equal(t, tt.title, l.title)
			assert.Equal(t, tt.minutes, l.minutes)
		})
	}
}
