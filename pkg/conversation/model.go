package conversation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Role identifies who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContextType identifies which mentor feature a conversation belongs to
type ContextType string

const (
	ContextSuccessManager     ContextType = "success_manager"     // General creator success-manager chat
	ContextCourseAssistant    ContextType = "course_assistant"    // Per-course learning assistant
	ContextCommunityAssistant ContextType = "community_assistant" // Per-community helper
)

// ParseContextType validates a context type string
func ParseContextType(s string) (ContextType, error) {
	switch ct := ContextType(strings.TrimSpace(s)); ct {
	case ContextSuccessManager, ContextCourseAssistant, ContextCommunityAssistant:
		return ct, nil
	default:
		return "", fmt.Errorf("unknown context type %q", s)
	}
}

// Context is the (type, optional id) pair a conversation is scoped to
type Context struct {
	Type ContextType `json:"type" yaml:"type"`
	ID   string      `json:"id,omitempty" yaml:"id,omitempty"` // Empty when the context has no id
}

// String returns a readable form of the context
func (c Context) String() string {
	if c.ID == "" {
		return string(c.Type)
	}
	return string(c.Type) + ":" + c.ID
}

// Turn is one immutable chat message
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Text: text, Timestamp: time.Now().UTC()}
}

// Record is the durable counterpart of a transcript
type Record struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Context   Context   `json:"context"`
	Title     string    `json:"title"`
	Messages  []Turn    `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Messages = CloneTurns(r.Messages)
	return &out
}

// CloneTurns copies a turn slice so callers can't alias the original
func CloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

const maxTitleRunes = 80

// TitleFor derives a history title from the first user turn
func TitleFor(turns []Turn) string {
	for _, t := range turns {
		if t.Role != RoleUser {
			continue
		}

		title := strings.Join(strings.Fields(t.Text), " ")
		if utf8.RuneCountInString(title) <= maxTitleRunes {
			return title
		}
		return string([]rune(title)[:maxTitleRunes-1]) + "…"
	}
	return ""
}
