package extraction

import (
	"bufio"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/course-ingest/internal/types"
	"gopkg.in/yaml.v3"
)

var (
	headingRegex  = regexp.MustCompile(`^(#{1,6})\s+(.+?)(?:\s+#+)?\s*$`)
	bulletRegex   = regexp.MustCompile(`^(\s*)(?:[-*+•]|\d+[.)])\s+(.+)$`)
	outcomesRegex = regexp.MustCompile(`(?i)^(?:learning\s+)?(?:outcomes|objectives|goals)\b|^what\s+you.?ll\s+learn`)
	durationRegex = regexp.MustCompile(`(?i)\s*[(\[]\s*(\d+)\s*(h|hr|hrs|hours?|m|min|mins|minutes?)\s*[)\]]\s*$`)
)

// MarkdownService is an offline Service for well-formed outlines.
// It understands optional YAML front matter, "# Course" / "## Module" / "### Lesson"
// headings, and bullet lessons directly under a module heading. Its output goes
// through the same Adapter checks as a model's reply.
type MarkdownService struct{}

// NewMarkdownService returns a MarkdownService.
func NewMarkdownService() *MarkdownService {
	return &MarkdownService{}
}

// ExtractCourseStructure parses markdown into an untyped course document.
// Text with neither a title nor a module yields an {"error": ...} document.
func (s *MarkdownService) ExtractCourseStructure(ctx context.Context, markdown string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := parseOutline(markdown)
	if _, hasTitle := doc["title"]; !hasTitle && len(doc["modules"].([]any)) == 0 {
		return json.Marshal(map[string]any{"error": "no course outline found"})
	}
	return json.Marshal(doc)
}

type outlineLesson struct {
	title    string
	minutes  int
	desc     []string
	bulleted bool
}

type outlineModule struct {
	title   string
	desc    []string
	lessons []*outlineLesson
}

type outlineState struct {
	title      string
	desc       []string
	outcomes   []string
	modules    []*outlineModule
	inOutcomes bool
}

func (st *outlineState) module() *outlineModule {
	if len(st.modules) == 0 {
		return nil
	}
	return st.modules[len(st.modules)-1]
}

func (st *outlineState) lesson() *outlineLesson {
	m := st.module()
	if m == nil || len(m.lessons) == 0 {
		return nil
	}
	return m.lessons[len(m.lessons)-1]
}

func parseOutline(markdown string) map[string]any {
	front, body := splitFrontMatter(markdown)

	st := &outlineState{}
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		st.consume(scanner.Text())
	}

	lang := types.DefaultLanguage
	if l, ok := front["language"].(string); ok && strings.TrimSpace(l) != "" {
		lang = strings.ToLower(strings.TrimSpace(l))
	}
	text := func(s string) any {
		if lang == types.DefaultLanguage {
			return s
		}
		return map[string]any{lang: s}
	}
	textMap := func(parts []string) any {
		joined := strings.TrimSpace(strings.Join(parts, "\n"))
		if joined == "" {
			return nil
		}
		return map[string]any{lang: joined}
	}

	doc := map[string]any{}
	if t, ok := front["title"]; ok && t != nil {
		doc["title"] = t
	} else if st.title != "" {
		doc["title"] = text(st.title)
	}

	if d, ok := front["description"]; ok && d != nil {
		doc["description"] = d
	} else if d := textMap(st.desc); d != nil {
		doc["description"] = d
	}

	for _, key := range []string{"level", "duration_weeks"} {
		if v, ok := front[key]; ok && v != nil {
			doc[key] = v
		}
	}
	if v, ok := front["schedule_basis"]; ok && v != nil {
		doc["schedule_basis"] = v
	} else if v, ok := front["schedule"]; ok && v != nil {
		doc["schedule_basis"] = v
	}

	if v, ok := front["outcomes"]; ok && v != nil {
		doc["outcomes"] = v
	} else if len(st.outcomes) > 0 {
		outcomes := make([]any, 0, len(st.outcomes))
		for _, o := range st.outcomes {
			outcomes = append(outcomes, o)
		}
		doc["outcomes"] = outcomes
	}

	modules := make([]any, 0, len(st.modules))
	for _, m := range st.modules {
		lessons := make([]any, 0, len(m.lessons))
		for _, l := range m.lessons {
			lesson := map[string]any{"title": text(l.title)}
			if l.minutes > 0 {
				lesson["duration_minutes"] = l.minutes
			}
			if d := textMap(l.desc); d != nil {
				lesson["description"] = d
			}
			lessons = append(lessons, lesson)
		}
		module := map[string]any{"title": text(m.title), "lessons": lessons}
		if d := textMap(m.desc); d != nil {
			module["description"] = d
		}
		modules = append(modules, module)
	}
	doc["modules"] = modules

	return doc
}

func (st *outlineState) consume(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	if match := headingRegex.FindStringSubmatch(strings.TrimLeft(line, " \t")); match != nil {
		level := len(match[1])
		heading := strings.TrimSpace(match[2])
		switch {
		case level == 1:
			if st.title == "" {
				st.title = heading
			}
			st.inOutcomes = false
		case level == 2 && outcomesRegex.MatchString(heading):
			st.inOutcomes = true
		case level == 2:
			st.inOutcomes = false
			st.modules = append(st.modules, &outlineModule{title: heading})
		default:
			if m := st.module(); m != nil && !st.inOutcomes {
				m.lessons = append(m.lessons, newLesson(heading, false))
			}
		}
		return
	}

	if match := bulletRegex.FindStringSubmatch(line); match != nil {
		indent := len(match[1])
		item := strings.TrimSpace(match[2])
		switch {
		case st.inOutcomes:
			st.outcomes = append(st.outcomes, item)
		case st.module() == nil:
			st.desc = append(st.desc, item)
		case indent == 0 && (st.lesson() == nil || st.lesson().bulleted):
			m := st.module()
			m.lessons = append(m.lessons, newLesson(item, true))
		case st.lesson() != nil:
			l := st.lesson()
			l.desc = append(l.desc, item)
		default:
			m := st.module()
			m.desc = append(m.desc, item)
		}
		return
	}

	text := strings.TrimSpace(line)
	switch {
	case st.inOutcomes:
	case st.lesson() != nil:
		l := st.lesson()
		l.desc = append(l.desc, text)
	case st.module() != nil:
		m := st.module()
		m.desc = append(m.desc, text)
	default:
		st.desc = append(st.desc, text)
	}
}

func newLesson(title string, bulleted bool) *outlineLesson {
	l := &outlineLesson{title: title, bulleted: bulleted}
	if match := durationRegex.FindStringSubmatch(title); match != nil {
		n, _ := strconv.Atoi(match[1])
		if strings.HasPrefix(strings.ToLower(match[2]), "h") {
			n *= 60
		}
		l.minutes = n
		l.title = strings.TrimSpace(title[:len(title)-len(match[0])])
	}
	return l
}

// splitFrontMatter returns the YAML front matter (if any) and the remaining body.
// Unparseable front matter is ignored and the whole text is treated as body.
func splitFrontMatter(content string) (map[string]any, string) {
	front := map[string]any{}
	content = strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(content, "---\n") {
		return front, content
	}
	end := strings.Index(content[4:], "\n---")
	if end < 0 {
		return front, content
	}

	raw := content[4 : 4+end]
	rest := content[4+end+4:]
	if idx := strings.Index(rest, "\n"); idx >= 0 {
		rest = rest[idx+1:]
	} else {
		rest = ""
	}

	if err := yaml.Unmarshal([]byte(raw), &front); err != nil {
		return map[string]any{}, content
	}
	return front, rest
}
