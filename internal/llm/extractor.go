package llm

import (
	"fmt"
	"strings"

	"github.com/jonathan/course-ingest/internal/prompts"
)

// ExtractionSchema describes what structured output an extraction prompt asks for.
type ExtractionSchema struct {
	Name        string        // e.g. "CourseStructure"
	Description string        // task preamble
	Fields      []SchemaField // expected top-level output fields
	Rules       []string      // extra instructions, one per line
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // type hint shown to the model
	Description string
	Required    bool
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = `"string"`
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		fmt.Fprintf(&sb, "  %q: %s%s", field.Name, typeHint, requiredHint)
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	if len(schema.Rules) > 0 {
		sb.WriteString("IMPORTANT:\n")
		for _, rule := range schema.Rules {
			sb.WriteString("- ")
			sb.WriteString(rule)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(inputText)
	sb.WriteString("\n")

	return sb.String()
}

// CourseStructureSchema returns the extraction schema for course outlines.
func CourseStructureSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "CourseStructure",
		Description: prompts.MustGet("extraction.json", "course-structure"),
		Rules:       splitRules(prompts.MustGet("extraction.json", "course-structure-rules")),
		Fields: []SchemaField{
			{
				Name:        "title",
				Type:        `"string" | {"<lang>": "string"}`,
				Description: "Course title",
				Required:    true,
			},
			{
				Name:        "description",
				Type:        `{"<lang>": "string"}`,
				Description: "Short course summary if the outline has one",
			},
			{
				Name:        "level",
				Type:        `"string"`,
				Description: "Audience level such as beginner, intermediate, advanced",
			},
			{
				Name:        "schedule_basis",
				Type:        `"weekly" | "daily" | "self_paced"`,
				Description: "How modules are released over time",
			},
			{
				Name:        "duration_weeks",
				Type:        "integer",
				Description: "Total course length in weeks",
			},
			{
				Name:        "outcomes",
				Type:        `["string"]`,
				Description: "Learning outcomes, copied verbatim",
			},
			{
				Name:        "modules",
				Type:        `[{"title": "string" | {"<lang>": "string"}, "description": {"<lang>": "string"}, "lessons": [{"title": "string" | {"<lang>": "string"}, "description": {"<lang>": "string"}, "duration_minutes": integer}]}]`,
				Description: "Modules in outline order, each with lessons in outline order",
				Required:    true,
			},
		},
	}
}

func splitRules(raw string) []string {
	var rules []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			rules = append(rules, line)
		}
	}
	return rules
}
