package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/extraction"
	"github.com/jonathan/course-ingest/internal/pipeline"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const algebra = `# Intro to Algebra

## Foundations
- Variables

## Equations
- Linear equations
- Quadratic equations
`

const geometry = `---
title: Geometry
schedule: weekly
---

## Shapes
### Triangles (30 min)
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func memoryPipeline() (*pipeline.Pipeline, *store.Memory) {
	mem := store.NewMemory()
	return pipeline.New(mem, extraction.NewAdapter(extraction.NewMarkdownService(), nil), nil, pipeline.Options{}), mem
}

func TestParseInviteCommand(t *testing.T) {
	stdout, _, err := execute(t, "Topic: Algebra office hours\nMeeting ID: 812 3456 7890\nPasscode: 9z9z", "parse-invite")
	require.NoError(t, err)

	var parsed map[string]*string
	require.NoError(t, json.Unmarshal([]byte(stdout), &parsed))
	require.NotNil(t, parsed["meetingId"])
	assert.Equal(t, "81234567890", *parsed["meetingId"])
	assert.Equal(t, "9z9z", *parsed["passcode"])
	assert.Nil(t, parsed["meetingUrl"])
}

func TestParseInviteCommand_HTMLFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "invite.html",
		`<p>Join: <a href="https://us02web.zoom.us/j/81234567890?pwd=abc">click here</a></p>`)

	stdout, _, err := execute(t, "", "parse-invite", "--in", path, "--html")
	require.NoError(t, err)

	var parsed map[string]*string
	require.NoError(t, json.Unmarshal([]byte(stdout), &parsed))
	require.NotNil(t, parsed["meetingUrl"])
	assert.Equal(t, "https://us02web.zoom.us/j/81234567890?pwd=abc", *parsed["meetingUrl"])
}

func TestParseCourseCommand_Offline(t *testing.T) {
	offlineEnv(t)
	path := writeFile(t, t.TempDir(), "algebra.md", algebra)

	stdout, _, err := execute(t, "", "parse-course", "--in", path, "--offline")
	require.NoError(t, err)

	var res struct {
		Upload           types.UploadAttempt         `json:"upload"`
		StructuredResult *types.StructuredCourseData `json:"structured_result"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, types.StatusParsed, res.Upload.Status)
	assert.Equal(t, "algebra.md", res.Upload.Filename)
	require.NotNil(t, res.StructuredResult)
	assert.Equal(t, 3, res.StructuredResult.LessonCount())
}

func TestParseCourseCommand_OutFile(t *testing.T) {
	offlineEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "algebra.md", algebra)
	out := filepath.Join(dir, "algebra.json")

	stdout, _, err := execute(t, "", "parse-course", "--in", path, "--offline", "--out", out)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Parsed 2 module(s), 3 lesson(s)")
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"structured_result"`)
}

func TestParseCourseCommand_Errors(t *testing.T) {
	offlineEnv(t)
	dir := t.TempDir()
	notes := writeFile(t, dir, "notes.txt", "buy milk")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing --in", args: []string{"parse-course", "--offline"}, wantErr: "required"},
		{name: "missing file", args: []string{"parse-course", "--in", filepath.Join(dir, "nope.md"), "--offline"}, wantErr: "not found"},
		{name: "not a course", args: []string{"parse-course", "--in", notes, "--offline"}, wantErr: "service_failure"},
		{name: "no api key", args: []string{"parse-course", "--in", notes}, wantErr: "GEMINI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCourseCommand_ReportsFailedUpload(t *testing.T) {
	offlineEnv(t)
	notes := writeFile(t, t.TempDir(), "notes.txt", "buy milk")

	_, stderr, err := execute(t, "", "parse-course", "--in", notes, "--offline")

	require.Error(t, err)
	assert.Contains(t, stderr, "recorded with status error")
}

func TestMaterializeCommand_RequiresDatabase(t *testing.T) {
	offlineEnv(t)

	_, _, err := execute(t, "", "materialize", "--upload-id", uuid.NewString(), "--start-date", "2025-09-01")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is required")
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	offlineEnv(t)

	_, _, err := execute(t, "", "migrate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is required")
}

func TestMaterializeInput(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "course.json", `{"title": "A", "modules": [{"title": "M", "lessons": [{"title": "L"}]}]}`)
	invalid := writeFile(t, dir, "bad.json", `{"title": "A", "modules": []}`)
	id := uuid.NewString()
	instructor := uuid.NewString()

	tests := []struct {
		name       string
		uploadID   string
		start      string
		instructor string
		data       string
		wantErr    string
	}{
		{name: "minimal", uploadID: id, start: "2025-09-01"},
		{name: "with data and instructor", uploadID: id, start: "2025-09-01", instructor: instructor, data: valid},
		{name: "bad upload id", uploadID: "42", start: "2025-09-01", wantErr: "--upload-id"},
		{name: "bad start date", uploadID: id, start: "soon", wantErr: "start_date"},
		{name: "bad instructor", uploadID: id, start: "2025-09-01", instructor: "x", wantErr: "--instructor-id"},
		{name: "invalid data", uploadID: id, start: "2025-09-01", data: invalid, wantErr: "not a valid course structure"},
		{name: "missing data file", uploadID: id, start: "2025-09-01", data: filepath.Join(dir, "nope.json"), wantErr: "failed to read data file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := materializeInput(tt.uploadID, tt.start, tt.instructor, tt.data)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, in.UploadID.String())
			assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), in.StartDate)
			assert.Equal(t, tt.data != "", in.Data != nil)
			assert.Equal(t, tt.instructor != "", in.InstructorID != nil)
		})
	}
}

func TestMaterializeAndReport(t *testing.T) {
	p, mem := memoryPipeline()
	ctx := context.Background()
	res, err := p.Submit(ctx, algebra, "algebra.md")
	require.NoError(t, err)
	in := pipeline.MaterializeInput{UploadID: res.Upload.ID, StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)}

	var out strings.Builder
	require.NoError(t, materializeAndReport(ctx, p, in, &out, nil))
	assert.Contains(t, out.String(), "with 2 module(s) and 3 lesson(s)")

	out.Reset()
	require.NoError(t, materializeAndReport(ctx, p, in, &out, nil), "an upload that is already done is not an error")
	assert.Contains(t, out.String(), "already materialized as course")
	assert.Equal(t, 1, mem.CourseCount())

	missing := pipeline.MaterializeInput{UploadID: uuid.New(), StartDate: in.StartDate}
	assert.ErrorIs(t, materializeAndReport(ctx, p, missing, &out, nil), store.ErrNotFound)
}

func TestIngestFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a_algebra.md", algebra),
		writeFile(t, dir, "b_algebra_copy.md", algebra),
		writeFile(t, dir, "c_geometry.markdown", geometry),
		writeFile(t, dir, "d_notes.txt", "buy milk"),
	}
	p, mem := memoryPipeline()
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	outcomes := ingestFiles(context.Background(), p, files, batchOptions{Concurrency: 2, StartDate: &start}, nil)

	require.Len(t, outcomes, 4)
	assert.Equal(t, types.StatusCreated, outcomes[0].Status)
	assert.Equal(t, 3, outcomes[0].Lessons)
	assert.NotEqual(t, uuid.Nil, outcomes[0].CourseID)

	assert.Equal(t, "a_algebra.md", outcomes[1].DuplicateOf)
	assert.Equal(t, uuid.Nil, outcomes[1].UploadID)

	assert.Equal(t, types.StatusCreated, outcomes[2].Status)
	assert.Equal(t, 1, outcomes[2].Modules)

	assert.Error(t, outcomes[3].Err)
	assert.Equal(t, types.StatusError, outcomes[3].Status)
	assert.NotEqual(t, uuid.Nil, outcomes[3].UploadID)

	assert.Equal(t, 3, mem.UploadCount())
	assert.Equal(t, 2, mem.CourseCount())

	var table strings.Builder
	assert.Equal(t, 1, printOutcomes(&table, outcomes))
	assert.Contains(t, table.String(), "same content as a_algebra.md")
	assert.Contains(t, table.String(), "course "+outcomes[0].CourseID.String())
}

// parsedWriteFailStore fails every write that would record a parsed result.
type parsedWriteFailStore struct {
	*store.Memory
}

func (s parsedWriteFailStore) UpdateUpload(ctx context.Context, id uuid.UUID, update store.UploadUpdate) error {
	if update.Status == types.StatusParsed {
		return store.Wrap("update upload", errors.New("disk full"))
	}
	return s.Memory.UpdateUpload(ctx, id, update)
}

func TestIngestOne_ReportsStoredStatus(t *testing.T) {
	mem := store.NewMemory()
	p := pipeline.New(parsedWriteFailStore{mem}, extraction.NewAdapter(extraction.NewMarkdownService(), nil), nil, pipeline.Options{})

	out := ingestOne(context.Background(), p, "algebra.md", algebra, batchOptions{})

	require.Error(t, out.Err)
	assert.NotEqual(t, uuid.Nil, out.UploadID)
	assert.Equal(t, types.StatusParsing, out.Status, "the parsed result was never stored")
}

func TestIngestDirCommand_Offline(t *testing.T) {
	offlineEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "algebra.md", algebra)
	writeFile(t, dir, "geometry.md", geometry)
	writeFile(t, dir, "ignored.json", `{}`)

	stdout, _, err := execute(t, "", "ingest-dir", "--dir", dir, "--offline", "--concurrency", "1")

	require.NoError(t, err)
	assert.Contains(t, stdout, "algebra.md")
	assert.Contains(t, stdout, "geometry.md")
	assert.NotContains(t, stdout, "ignored.json")
	assert.Equal(t, 2, strings.Count(stdout, string(types.StatusParsed)))
}

func TestIngestDirCommand_Errors(t *testing.T) {
	offlineEnv(t)
	empty := t.TempDir()
	bad := t.TempDir()
	writeFile(t, bad, "notes.txt", "buy milk")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no files", args: []string{"ingest-dir", "--dir", empty, "--offline"}, wantErr: "no course files"},
		{name: "zero concurrency", args: []string{"ingest-dir", "--dir", bad, "--offline", "--concurrency", "0"}, wantErr: "--concurrency"},
		{name: "bad start date", args: []string{"ingest-dir", "--dir", bad, "--offline", "--start-date", "soon"}, wantErr: "start_date"},
		{name: "failed file", args: []string{"ingest-dir", "--dir", bad, "--offline"}, wantErr: "1 of 1 file(s) failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCourseCommand_Verbose(t *testing.T) {
	offlineEnv(t)
	path := writeFile(t, t.TempDir(), "algebra.md", algebra)

	_, stderr, err := execute(t, "", "parse-course", "--in", path, "--offline", "--verbose")

	require.NoError(t, err)
	assert.Contains(t, stderr, "EXTRACTED COURSE")
	assert.Contains(t, stderr, "Intro to Algebra")
	assert.Contains(t, stderr, "✓")
}
