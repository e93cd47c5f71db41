// Package mentor produces assistant replies for a mentor conversation
package mentor

import (
	"context"

	"github.com/ethanbaker/mentor/pkg/conversation"
)

// Responder returns an assistant reply to newText given the transcript so far. Calls may be
// slow and may fail; callers must treat both as normal.
type Responder interface {
	Respond(ctx context.Context, transcript []conversation.Turn, newText string, params map[string]any) (string, error)
}

// ResponderFunc adapts a plain function to the Responder interface
type ResponderFunc func(ctx context.Context, transcript []conversation.Turn, newText string, params map[string]any) (string, error)

// Respond calls f
func (f ResponderFunc) Respond(ctx context.Context, transcript []conversation.Turn, newText string, params map[string]any) (string, error) {
	return f(ctx, transcript, newText, params)
}
