package conversation

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/google/uuid"
)

// InMemoryStore is a conversation store kept in process memory (for tests and one-off runs)
type InMemoryStore struct {
	records map[string]*memoryRecord
	seq     uint64 // bumped on every write, breaks updated_at ties
	mu      sync.RWMutex
}

type memoryRecord struct {
	record *conversation.Record
	seq    uint64
}

// NewInMemoryStore creates a new in-memory conversation store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*memoryRecord),
	}
}

// LoadMostRecent returns the latest record for an owner and context, or nil if there is none
func (s *InMemoryStore) LoadMostRecent(ctx context.Context, owner string, c conversation.Context) (*conversation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.matching(owner, &c)
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0].record.Clone(), nil
}

// Upsert creates a record or replaces the messages of an existing one
func (s *InMemoryStore) Upsert(ctx context.Context, owner string, c conversation.Context, messages []conversation.Turn, existingID string) (*conversation.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.seq++

	if existingID == "" {
		rec := &conversation.Record{
			ID:        uuid.New().String(),
			Owner:     owner,
			Context:   c,
			Title:     conversation.TitleFor(messages),
			Messages:  conversation.CloneTurns(messages),
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.records[rec.ID] = &memoryRecord{record: rec, seq: s.seq}
		return rec.Clone(), nil
	}

	entry, ok := s.records[existingID]
	if !ok {
		return nil, conversation.ErrNotFound
	}
	if entry.record.Owner != owner {
		return nil, conversation.ErrForbidden
	}
	if entry.record.Context != c {
		return nil, conversation.ErrNotFound
	}

	entry.record.Messages = conversation.CloneTurns(messages)
	entry.record.Title = conversation.TitleFor(messages)
	entry.record.UpdatedAt = now
	entry.seq = s.seq

	return entry.record.Clone(), nil
}

// ListHistory lists an owner's records newest first
func (s *InMemoryStore) ListHistory(ctx context.Context, owner string, c *conversation.Context, limit int) ([]*conversation.Record, error) {
	if limit <= 0 {
		limit = conversation.DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.matching(owner, c)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	records := make([]*conversation.Record, 0, len(matches))
	for _, m := range matches {
		records = append(records, m.record.Clone())
	}
	return records, nil
}

// Get returns one record owned by owner
func (s *InMemoryStore) Get(ctx context.Context, id, owner string) (*conversation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.records[id]
	if !ok {
		return nil, conversation.ErrNotFound
	}
	if entry.record.Owner != owner {
		return nil, conversation.ErrForbidden
	}
	return entry.record.Clone(), nil
}

// Delete removes a record owned by owner
func (s *InMemoryStore) Delete(ctx context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[id]
	if !ok {
		return conversation.ErrNotFound
	}
	if entry.record.Owner != owner {
		return conversation.ErrForbidden
	}

	delete(s.records, id)
	return nil
}

// matching returns records for owner (and context if given), newest first. Caller holds the lock.
func (s *InMemoryStore) matching(owner string, c *conversation.Context) []*memoryRecord {
	var out []*memoryRecord
	for _, entry := range s.records {
		if entry.record.Owner != owner {
			continue
		}
		if c != nil && entry.record.Context != *c {
			continue
		}
		out = append(out, entry)
	}

	slices.SortFunc(out, func(a, b *memoryRecord) int {
		if cmp := b.record.UpdatedAt.Compare(a.record.UpdatedAt); cmp != 0 {
			return cmp
		}
		return int(b.seq) - int(a.seq)
	})
	return out
}
