package conversation

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("conversation not found")

	// ErrForbidden is returned when a record belongs to a different owner
	ErrForbidden = errors.New("conversation belongs to another owner")
)

// DefaultHistoryLimit is used by ListHistory when no positive limit is given
const DefaultHistoryLimit = 20

// Store persists conversation records. Implementations hold no ordering logic of their own.
type Store interface {
	// LoadMostRecent returns the most recently updated record for (owner, c), or nil when none exists
	LoadMostRecent(ctx context.Context, owner string, c Context) (*Record, error)

	// Upsert replaces the messages of existingID, or creates a new record when existingID is empty.
	// An existing record in another context is reported as ErrNotFound.
	Upsert(ctx context.Context, owner string, c Context, messages []Turn, existingID string) (*Record, error)

	// ListHistory lists records newest first. A nil context lists every context of the owner.
	ListHistory(ctx context.Context, owner string, c *Context, limit int) ([]*Record, error)

	// Get returns a single record after verifying ownership
	Get(ctx context.Context, id, owner string) (*Record, error)

	// Delete removes a record after verifying ownership
	Delete(ctx context.Context, id, owner string) error
}
