// Package observability provides formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jonathan/course-ingest/internal/pipeline"
	"github.com/jonathan/course-ingest/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode. It is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // verbose output; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// PrintCourse outputs a summary of extracted course data: the header fields and the first modules.
func (p *Printer) PrintCourse(data *types.StructuredCourseData) {
	if data == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title:    %s\n", data.Title.Primary())
	if data.Level != "" {
		fmt.Fprintf(&sb, "Level:    %s\n", data.Level)
	}
	if data.ScheduleBasis != "" {
		fmt.Fprintf(&sb, "Schedule: %s\n", data.ScheduleBasis)
	}
	if langs := data.Title.Languages(); len(langs) > 1 {
		fmt.Fprintf(&sb, "Languages: %s\n", strings.Join(langs, ", "))
	}
	fmt.Fprintf(&sb, "Modules:  %d (%d lessons)\n", len(data.Modules), data.LessonCount())

	count := min(len(data.Modules), maxItemsToShow)
	if count > 0 {
		sb.WriteString("\n")
	}
	for i := 0; i < count; i++ {
		m := data.Modules[i]
		fmt.Fprintf(&sb, "%d. %s\n", i+1, m.Title.Primary())
		for j, l := range m.Lessons {
			if j == maxItemsToShow {
				fmt.Fprintf(&sb, "     ... and %d more\n", len(m.Lessons)-maxItemsToShow)
				break
			}
			fmt.Fprintf(&sb, "   • %s", l.Title.Primary())
			if l.DurationMinutes > 0 {
				fmt.Fprintf(&sb, " (%d min)", l.DurationMinutes)
			}
			sb.WriteString("\n")
		}
	}
	if len(data.Modules) > maxItemsToShow {
		fmt.Fprintf(&sb, "... and %d more modules\n", len(data.Modules)-maxItemsToShow)
	}

	p.printBox("EXTRACTED COURSE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMaterialized outputs the created course with module unlock dates.
func (p *Printer) PrintMaterialized(course *types.MaterializedCourse) {
	if course == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course:  %s\n", course.ID)
	fmt.Fprintf(&sb, "Upload:  %s\n", course.UploadID)
	fmt.Fprintf(&sb, "Starts:  %s\n", course.StartDate.Format("2006-01-02"))
	if course.InstructorID != nil {
		fmt.Fprintf(&sb, "Teacher: %s\n", course.InstructorID)
	}
	sb.WriteString("\n")

	count := min(len(course.Modules), maxItemsToShow)
	for i := 0; i < count; i++ {
		m := course.Modules[i]
		fmt.Fprintf(&sb, "%d. %s  [%d lessons, unlocks %s]\n",
			m.Position+1, m.Title.Primary(), len(m.Lessons), m.UnlockAt.Format("2006-01-02"))
	}
	if len(course.Modules) > maxItemsToShow {
		fmt.Fprintf(&sb, "... and %d more modules\n", len(course.Modules)-maxItemsToShow)
	}

	p.printBox("MATERIALIZED COURSE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintWarnings lists optional fields dropped during extraction.
func (p *Printer) PrintWarnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}
	p.printBox(fmt.Sprintf("WARNINGS (%d)", len(warnings)), strings.Join(warnings, "\n"))
}

// PrintProgress writes one line per pipeline step. It matches pipeline.ProgressCallback.
//
//nolint:errcheck // verbose output; errors are not recoverable
func (p *Printer) PrintProgress(e pipeline.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := "✓"
	if e.Failed {
		mark = "✗"
	}
	id := e.UploadID.String()
	if len(id) > 8 {
		id = id[:8]
	}
	fmt.Fprintf(p.out, "%s [%s] %-11s %s\n", mark, id, e.Step, e.Message)
}
