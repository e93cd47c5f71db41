package mentor

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// PromptBuilder helps construct the instructions sent with each reply request
type PromptBuilder struct {
	systemPrompt string
	context      []string
	facts        map[string]string
}

// NewPromptBuilder creates a new prompt builder with a base system prompt
func NewPromptBuilder(systemPrompt string) *PromptBuilder {
	return &PromptBuilder{
		systemPrompt: systemPrompt,
		context:      make([]string, 0),
		facts:        make(map[string]string),
	}
}

// AddContext adds contextual information to the prompt
func (pb *PromptBuilder) AddContext(context string) *PromptBuilder {
	pb.context = append(pb.context, context)
	return pb
}

// AddFact adds a key-value fact to the prompt
func (pb *PromptBuilder) AddFact(key, value string) *PromptBuilder {
	pb.facts[key] = value
	return pb
}

// AddParams adds free-form context parameters (course metadata, statistics) as facts
func (pb *PromptBuilder) AddParams(params map[string]any) *PromptBuilder {
	for key, value := range params {
		if value == nil {
			continue
		}
		pb.AddFact(key, fmt.Sprint(value))
	}
	return pb
}

// Build constructs the final prompt. Facts are sorted by key so equal inputs give equal prompts.
func (pb *PromptBuilder) Build() string {
	parts := []string{pb.systemPrompt}

	if len(pb.facts) > 0 {
		keys := make([]string, 0, len(pb.facts))
		for key := range pb.facts {
			keys = append(keys, key)
		}
		slices.Sort(keys)

		parts = append(parts, "\n## Key Facts:")
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("- %s: %s", key, pb.facts[key]))
		}
	}

	if len(pb.context) > 0 {
		parts = append(parts, "\n## Context:")
		for _, ctx := range pb.context {
			parts = append(parts, fmt.Sprintf("- %s", ctx))
		}
	}

	return strings.Join(parts, "\n")
}

// buildInstructions assembles the standard mentor prompt for one request
func buildInstructions(base string, params map[string]any, now time.Time) string {
	return NewPromptBuilder(base).
		AddParams(params).
		AddContext("Today's date: " + now.Format("Monday, 2006-01-02")).
		Build()
}
