package mentor

import (
	"context"
	"testing"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/nlpodyssey/openai-agents-go/memory"
	"github.com/openai/openai-go/v2/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptSession(t *testing.T) {
	ctx := context.Background()
	sess := newTranscriptSession([]conversation.Turn{
		conversation.NewTurn(conversation.RoleAssistant, "Hi! How can I help?"),
		conversation.NewTurn(conversation.RoleUser, "Explain loops"),
		conversation.NewTurn(conversation.RoleAssistant, ""),
		conversation.NewTurn(conversation.RoleAssistant, "A loop repeats work."),
	})

	assert.NotEmpty(t, sess.SessionID(ctx))

	t.Run("empty turns are skipped", func(t *testing.T) {
		items, err := sess.GetItems(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 3)

		require.NotNil(t, items[0].OfMessage)
		assert.Equal(t, responses.EasyInputMessageRoleAssistant, items[0].OfMessage.Role)
		assert.Equal(t, responses.EasyInputMessageRoleUser, items[1].OfMessage.Role)
	})

	t.Run("limit keeps the latest items", func(t *testing.T) {
		items, err := sess.GetItems(ctx, 2)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, responses.EasyInputMessageRoleUser, items[0].OfMessage.Role)
	})

	t.Run("add, pop and clear", func(t *testing.T) {
		extra := turnToItem(conversation.NewTurn(conversation.RoleUser, "and recursion?"))
		require.NoError(t, sess.AddItems(ctx, []memory.TResponseInputItem{extra}))

		items, err := sess.GetItems(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, items, 4)

		popped, err := sess.PopItem(ctx)
		require.NoError(t, err)
		require.NotNil(t, popped)
		require.NotNil(t, popped.OfMessage)
		assert.Equal(t, responses.EasyInputMessageRoleUser, popped.OfMessage.Role)

		require.NoError(t, sess.ClearSession(ctx))
		items, err = sess.GetItems(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, items)

		popped, err = sess.PopItem(ctx)
		require.NoError(t, err)
		assert.Nil(t, popped)
	})
}
