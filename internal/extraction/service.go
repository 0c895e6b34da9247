// Package extraction turns raw course markdown into validated StructuredCourseData
// by calling an extraction service and checking its untyped output.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/course-ingest/internal/llm"
	"github.com/jonathan/course-ingest/internal/prompts"
)

// Service is the opaque extraction collaborator. Its output is untrusted JSON.
type Service interface {
	ExtractCourseStructure(ctx context.Context, markdown string) (json.RawMessage, error)
}

// ServiceFunc adapts a plain function to Service.
type ServiceFunc func(ctx context.Context, markdown string) (json.RawMessage, error)

// ExtractCourseStructure calls f.
func (f ServiceFunc) ExtractCourseStructure(ctx context.Context, markdown string) (json.RawMessage, error) {
	return f(ctx, markdown)
}

// LLMService extracts course structure with an LLM client.
type LLMService struct {
	client llm.Client
	tier   llm.ModelTier
	schema llm.ExtractionSchema
}

// NewLLMService creates a Service backed by client. An empty tier uses TierStandard.
func NewLLMService(client llm.Client, tier llm.ModelTier) *LLMService {
	if tier == "" {
		tier = llm.TierStandard
	}
	return &LLMService{
		client: client,
		tier:   tier,
		schema: llm.CourseStructureSchema(),
	}
}

// ExtractCourseStructure sends the outline to the model and returns its JSON reply.
func (s *LLMService) ExtractCourseStructure(ctx context.Context, markdown string) (json.RawMessage, error) {
	prompt := s.buildPrompt(markdown)

	resp, err := s.client.GenerateJSON(ctx, prompt, s.tier)
	if err != nil {
		return nil, fmt.Errorf("failed to generate course structure: %w", err)
	}
	return json.RawMessage(llm.CleanJSONBlock(resp)), nil
}

func (s *LLMService) buildPrompt(markdown string) string {
	input := prompts.Format(prompts.MustGet("extraction.json", "course-structure-input"), map[string]string{
		"Markdown": markdown,
	})
	return llm.BuildExtractionPrompt(s.schema, input)
}
