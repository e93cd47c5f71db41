package mentor

import (
	"context"
	"sync"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/google/uuid"
	"github.com/nlpodyssey/openai-agents-go/memory"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/responses"
)

// transcriptSession is a throwaway memory.Session seeded with a transcript snapshot. The agent
// runner reads history from it and appends its own items, which are dropped with the session;
// the engine owns the durable transcript.
type transcriptSession struct {
	id    string
	items []memory.TResponseInputItem
	mu    sync.Mutex
}

var _ memory.Session = (*transcriptSession)(nil)

// newTranscriptSession converts the turns to response input items
func newTranscriptSession(turns []conversation.Turn) *transcriptSession {
	items := make([]memory.TResponseInputItem, 0, len(turns))
	for _, turn := range turns {
		if turn.Text == "" {
			continue
		}
		items = append(items, turnToItem(turn))
	}

	return &transcriptSession{
		id:    uuid.NewString(),
		items: items,
	}
}

// SessionID returns the session ID as a string
func (s *transcriptSession) SessionID(ctx context.Context) string {
	return s.id
}

// GetItems returns the latest limit items in chronological order, or all of them if limit <= 0
func (s *transcriptSession) GetItems(ctx context.Context, limit int) ([]memory.TResponseInputItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}

	out := make([]memory.TResponseInputItem, len(items))
	copy(out, items)
	return out, nil
}

// AddItems appends items produced during the run
func (s *transcriptSession) AddItems(ctx context.Context, items []memory.TResponseInputItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, items...)
	return nil
}

// PopItem removes and returns the most recent item, or nil when empty
func (s *transcriptSession) PopItem(ctx context.Context) (*memory.TResponseInputItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil, nil
	}

	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return &last, nil
}

// ClearSession drops every item
func (s *transcriptSession) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return nil
}

// turnToItem converts a turn into an easy input message
func turnToItem(turn conversation.Turn) memory.TResponseInputItem {
	role := responses.EasyInputMessageRoleUser
	if turn.Role == conversation.RoleAssistant {
		role = responses.EasyInputMessageRoleAssistant
	}

	return memory.TResponseInputItem{
		OfMessage: &responses.EasyInputMessageParam{
			Role: role,
			Content: responses.EasyInputMessageContentUnionParam{
				OfString: openai.String(turn.Text),
			},
		},
	}
}
