package mentor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ethanbaker/mentor/pkg/conversation"
)

// DefaultAnthropicModel is used when a profile names no model
const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// AnthropicResponder answers through the Anthropic Messages API
type AnthropicResponder struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	profile   Profile
}

// NewAnthropicResponder creates a responder for one mentor profile. A client created with
// anthropic.NewClient() reads ANTHROPIC_API_KEY from the environment.
func NewAnthropicResponder(client *anthropic.Client, profile Profile, maxTokens int64) *AnthropicResponder {
	model := anthropic.Model(profile.Model)
	if profile.Model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &AnthropicResponder{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		profile:   profile,
	}
}

// Respond sends the transcript plus the new text and returns the text blocks of the reply
func (r *AnthropicResponder) Respond(ctx context.Context, transcript []conversation.Turn, newText string, params map[string]any) (string, error) {
	req := anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: buildInstructions(r.profile.Instructions, params, time.Now())},
		},
		Messages: toAnthropicMessages(transcript, newText),
	}

	msg, err := r.client.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok && tb.Text != "" {
			parts = append(parts, tb.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// toAnthropicMessages converts turns to alternating messages. The API requires the first message
// to come from the user, so leading assistant turns (the greeting) are dropped, and consecutive
// turns from the same role are merged into one message.
func toAnthropicMessages(transcript []conversation.Turn, newText string) []anthropic.MessageParam {
	turns := append(conversation.CloneTurns(transcript), conversation.NewTurn(conversation.RoleUser, newText))

	var (
		messages []anthropic.MessageParam
		blocks   []anthropic.ContentBlockParamUnion
		current  conversation.Role
	)

	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if current == conversation.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
		blocks = nil
	}

	for _, turn := range turns {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		if len(messages) == 0 && len(blocks) == 0 && turn.Role == conversation.RoleAssistant {
			continue
		}

		if turn.Role != current {
			flush()
			current = turn.Role
		}
		blocks = append(blocks, anthropic.NewTextBlock(turn.Text))
	}
	flush()

	return messages
}
