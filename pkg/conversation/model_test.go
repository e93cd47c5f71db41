package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContextType(t *testing.T) {
	tests := []struct {
		in      string
		want    ContextType
		wantErr bool
	}{
		{"success_manager", ContextSuccessManager, false},
		{" course_assistant ", ContextCourseAssistant, false},
		{"community_assistant", ContextCommunityAssistant, false},
		{"", "", true},
		{"billing", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContextType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextString(t *testing.T) {
	assert.Equal(t, "success_manager", Context{Type: ContextSuccessManager}.String())
	assert.Equal(t, "course_assistant:c-1", Context{Type: ContextCourseAssistant, ID: "c-1"}.String())
}

func TestTitleFor(t *testing.T) {
	t.Run("first user turn wins", func(t *testing.T) {
		title := TitleFor([]Turn{
			NewTurn(RoleAssistant, "Hello there"),
			NewTurn(RoleUser, "  How do   I\nsubmit homework?  "),
			NewTurn(RoleUser, "Second question"),
		})
		assert.Equal(t, "How do I submit homework?", title)
	})

	t.Run("long titles are truncated", func(t *testing.T) {
		title := TitleFor([]Turn{NewTurn(RoleUser, strings.Repeat("é", 200))})
		assert.Equal(t, maxTitleRunes, len([]rune(title)))
		assert.True(t, strings.HasSuffix(title, "…"))
	})

	t.Run("no user turns", func(t *testing.T) {
		assert.Empty(t, TitleFor([]Turn{NewTurn(RoleAssistant, "Hi")}))
		assert.Empty(t, TitleFor(nil))
	})
}

func TestRecordClone(t *testing.T) {
	rec := &Record{ID: "1", Messages: []Turn{NewTurn(RoleUser, "hi")}}
	clone := rec.Clone()

	clone.Messages[0].Text = "changed"
	assert.Equal(t, "hi", rec.Messages[0].Text)

	var nilRec *Record
	assert.Nil(t, nilRec.Clone())
	assert.Nil(t, CloneTurns(nil))
}
