package mentor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

// AgentResponder answers through an openai-agents-go runner. The API key is read from
// OPENAI_API_KEY by the agents runtime.
type AgentResponder struct {
	name    string
	profile Profile
}

// NewAgentResponder creates a responder for one mentor profile
func NewAgentResponder(name string, profile Profile) *AgentResponder {
	return &AgentResponder{
		name:    name,
		profile: profile,
	}
}

// Respond runs the agent with the transcript as session history
func (r *AgentResponder) Respond(ctx context.Context, transcript []conversation.Turn, newText string, params map[string]any) (string, error) {
	agent := agents.New(r.name).
		WithInstructions(buildInstructions(r.profile.Instructions, params, time.Now()))
	if r.profile.Model != "" {
		agent = agent.WithModel(r.profile.Model)
	}

	runner := agents.Runner{
		Config: agents.RunConfig{
			Session: newTranscriptSession(transcript),
		},
	}

	resp, err := runner.Run(ctx, agent, newText)
	if err != nil {
		return "", fmt.Errorf("agent execution failed: %w", err)
	}

	if resp.FinalOutput == nil {
		return "", nil
	}
	return strings.TrimSpace(fmt.Sprint(resp.FinalOutput)), nil
}
