package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel is the narrow generation surface the engine needs. Any eino
// chat model satisfies it; tests substitute a fake.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// systemPrompt constrains the model to the supplied context and the
// [Source N] citation convention.
const systemPrompt = `You are a technical documentation assistant. Answer the question using ONLY the numbered sources provided below. Cite every claim with its source tag, e.g. [Source 1]. If the sources do not contain the answer, say so plainly instead of guessing.

Sources:
%s`

// Generator produces grounded answers from assembled context.
type Generator struct {
	model ChatModel
}

// NewGenerator wraps a chat model for answer generation.
func NewGenerator(m ChatModel) (*Generator, error) {
	if m == nil {
		return nil, fmt.Errorf("engine: chat model must not be nil")
	}
	return &Generator{model: m}, nil
}

// Generate asks the model to answer the query from the tagged context and
// returns the sanitized answer text.
func (g *Generator) Generate(ctx context.Context, query, contextStr string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(systemPrompt, contextStr)),
		schema.UserMessage(query),
	}

	resp, err := g.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("engine: generation failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("engine: model returned empty response")
	}
	return sanitizeAnswer(resp.Content), nil
}

// instructionEcho matches lines where the model leaked its own instructions
// back into the answer.
var instructionEcho = regexp.MustCompile(`(?im)^(system|instructions?|sources)\s*:\s*$`)

// sanitizeAnswer trims the raw model output and drops echoed instruction
// headers.
func sanitizeAnswer(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if instructionEcho.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
