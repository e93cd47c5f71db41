package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	courseCtx  = conversation.Context{Type: conversation.ContextCourseAssistant, ID: "course-1"}
	managerCtx = conversation.Context{Type: conversation.ContextSuccessManager}
)

func turns(texts ...string) []conversation.Turn {
	out := make([]conversation.Turn, 0, len(texts))
	for i, text := range texts {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		out = append(out, conversation.NewTurn(role, text))
	}
	return out
}

// stores returns every implementation under test
func stores(t *testing.T) map[string]conversation.Store {
	t.Helper()

	sqliteStore, err := NewSqliteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]conversation.Store{
		"memory": NewInMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStore_LoadMostRecent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("absent is not an error", func(t *testing.T) {
				rec, err := store.LoadMostRecent(ctx, "nobody", courseCtx)
				require.NoError(t, err)
				assert.Nil(t, rec)
			})

			older, err := store.Upsert(ctx, "alice", courseCtx, turns("first", "reply"), "")
			require.NoError(t, err)
			time.Sleep(5 * time.Millisecond)
			newer, err := store.Upsert(ctx, "alice", courseCtx, turns("second", "reply"), "")
			require.NoError(t, err)

			// Other owners and contexts are never returned
			_, err = store.Upsert(ctx, "bob", courseCtx, turns("bob's"), "")
			require.NoError(t, err)
			_, err = store.Upsert(ctx, "alice", managerCtx, turns("elsewhere"), "")
			require.NoError(t, err)

			rec, err := store.LoadMostRecent(ctx, "alice", courseCtx)
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, newer.ID, rec.ID)

			// Touching the older one makes it the most recent
			time.Sleep(5 * time.Millisecond)
			_, err = store.Upsert(ctx, "alice", courseCtx, turns("first", "reply", "again"), older.ID)
			require.NoError(t, err)

			rec, err = store.LoadMostRecent(ctx, "alice", courseCtx)
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, older.ID, rec.ID)
			require.Len(t, rec.Messages, 3)
			assert.Equal(t, "again", rec.Messages[2].Text)
			assert.Equal(t, conversation.RoleUser, rec.Messages[2].Role)
		})
	}
}

func TestStore_Upsert(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := store.Upsert(ctx, "alice", courseCtx, turns("How do I start module 2?", "Open the course page."), "")
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)
			assert.Equal(t, "alice", created.Owner)
			assert.Equal(t, courseCtx, created.Context)
			assert.Equal(t, "How do I start module 2?", created.Title)

			t.Run("same id twice is safe", func(t *testing.T) {
				msgs := turns("a", "b", "c", "d")
				first, err := store.Upsert(ctx, "alice", courseCtx, msgs, created.ID)
				require.NoError(t, err)
				second, err := store.Upsert(ctx, "alice", courseCtx, msgs, created.ID)
				require.NoError(t, err)

				assert.Equal(t, created.ID, first.ID)
				assert.Equal(t, created.ID, second.ID)
				assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

				history, err := store.ListHistory(ctx, "alice", &courseCtx, 10)
				require.NoError(t, err)
				assert.Len(t, history, 1)
			})

			t.Run("unknown id", func(t *testing.T) {
				_, err := store.Upsert(ctx, "alice", courseCtx, turns("x"), uuid.NewString())
				assert.ErrorIs(t, err, conversation.ErrNotFound)
			})

			t.Run("other owner", func(t *testing.T) {
				_, err := store.Upsert(ctx, "mallory", courseCtx, turns("x"), created.ID)
				assert.ErrorIs(t, err, conversation.ErrForbidden)

				rec, err := store.Get(ctx, created.ID, "alice")
				require.NoError(t, err)
				assert.Len(t, rec.Messages, 4)
			})

			t.Run("other context", func(t *testing.T) {
				otherCourse := conversation.Context{Type: conversation.ContextCourseAssistant, ID: "course-2"}
				for _, c := range []conversation.Context{managerCtx, otherCourse} {
					_, err := store.Upsert(ctx, "alice", c, turns("moved"), created.ID)
					assert.ErrorIs(t, err, conversation.ErrNotFound)
				}

				rec, err := store.Get(ctx, created.ID, "alice")
				require.NoError(t, err)
				assert.Equal(t, courseCtx, rec.Context)
				assert.Len(t, rec.Messages, 4)
			})
		})
	}
}

func TestStore_ListHistory(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var ids []string
			for _, text := range []string{"one", "two", "three"} {
				rec, err := store.Upsert(ctx, "alice", courseCtx, turns(text), "")
				require.NoError(t, err)
				ids = append(ids, rec.ID)
				time.Sleep(5 * time.Millisecond)
			}
			_, err := store.Upsert(ctx, "alice", managerCtx, turns("four"), "")
			require.NoError(t, err)

			history, err := store.ListHistory(ctx, "alice", &courseCtx, 10)
			require.NoError(t, err)
			require.Len(t, history, 3)
			assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{history[0].ID, history[1].ID, history[2].ID})

			limited, err := store.ListHistory(ctx, "alice", &courseCtx, 2)
			require.NoError(t, err)
			assert.Len(t, limited, 2)

			all, err := store.ListHistory(ctx, "alice", nil, 0)
			require.NoError(t, err)
			assert.Len(t, all, 4)
			assert.Equal(t, "four", all[0].Title)

			none, err := store.ListHistory(ctx, "bob", nil, 10)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec, err := store.Upsert(ctx, "alice", courseCtx, turns("hello"), "")
			require.NoError(t, err)

			// Another owner can't delete it, and nothing changes
			assert.ErrorIs(t, store.Delete(ctx, rec.ID, "mallory"), conversation.ErrForbidden)
			_, err = store.Get(ctx, rec.ID, "alice")
			require.NoError(t, err)

			require.NoError(t, store.Delete(ctx, rec.ID, "alice"))

			_, err = store.Get(ctx, rec.ID, "alice")
			assert.ErrorIs(t, err, conversation.ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, rec.ID, "alice"), conversation.ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, "not-a-uuid", "alice"), conversation.ErrNotFound)

			latest, err := store.LoadMostRecent(ctx, "alice", courseCtx)
			require.NoError(t, err)
			assert.Nil(t, latest)
		})
	}
}

func TestMessages_ValueScan(t *testing.T) {
	original := Messages(turns("hi", "hello"))

	value, err := original.Value()
	require.NoError(t, err)

	var scanned Messages
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 2)
	assert.Equal(t, original[1].Text, scanned[1].Text)
	assert.True(t, original[0].Timestamp.Equal(scanned[0].Timestamp))

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)

	assert.Error(t, scanned.Scan(42))
	assert.Error(t, scanned.Scan("{not json"))
}
