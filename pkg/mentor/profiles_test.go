package mentor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/ethanbaker/mentor/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()

	for _, ct := range []conversation.ContextType{
		conversation.ContextSuccessManager,
		conversation.ContextCourseAssistant,
		conversation.ContextCommunityAssistant,
	} {
		p := profiles.For(ct)
		assert.NotEmpty(t, p.Greeting, ct)
		assert.NotEmpty(t, p.Instructions, ct)
		assert.Equal(t, DefaultFallback, p.Fallback, ct)
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "course.md"), []byte("  Course prompt from file.\n"), 0644))

	path := filepath.Join(dir, "mentors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default:
  fallback: "Connection trouble, try again."
  model: gpt-4o-mini
mentors:
  course_assistant:
    greeting: "Welcome to the course!"
    instructions_path: course.md
  success_manager:
    model: gpt-4o
`), 0644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)

	course := profiles.For(conversation.ContextCourseAssistant)
	assert.Equal(t, "Welcome to the course!", course.Greeting)
	assert.Equal(t, "Course prompt from file.", course.Instructions)
	assert.Equal(t, "gpt-4o-mini", course.Model)
	assert.Equal(t, "Connection trouble, try again.", course.Fallback)

	manager := profiles.For(conversation.ContextSuccessManager)
	assert.Equal(t, "gpt-4o", manager.Model)
	assert.Equal(t, DefaultProfiles().For(conversation.ContextSuccessManager).Greeting, manager.Greeting)

	t.Run("empty path gives defaults", func(t *testing.T) {
		profiles, err := LoadProfiles("")
		require.NoError(t, err)
		assert.Equal(t, DefaultProfiles().For(conversation.ContextCourseAssistant), profiles.For(conversation.ContextCourseAssistant))
	})

	t.Run("unknown context type", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("mentors:\n  astrology: {greeting: hi}\n"), 0644))
		_, err := LoadProfiles(bad)
		assert.Error(t, err)
	})

	t.Run("missing instructions file", func(t *testing.T) {
		bad := filepath.Join(dir, "missing.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("mentors:\n  course_assistant: {instructions_path: nope.md}\n"), 0644))
		_, err := LoadProfiles(bad)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProfiles(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestNewResponder(t *testing.T) {
	profile := DefaultProfiles().For(conversation.ContextCourseAssistant)

	t.Run("openai by default", func(t *testing.T) {
		r, err := NewResponder(utils.NewConfig(map[string]string{"MODEL": "gpt-4o-mini"}), conversation.ContextCourseAssistant, profile)
		require.NoError(t, err)

		agent, ok := r.(*AgentResponder)
		require.True(t, ok)
		assert.Equal(t, "mentor-course_assistant", agent.name)
		assert.Equal(t, "gpt-4o-mini", agent.profile.Model)
	})

	t.Run("anthropic", func(t *testing.T) {
		cfg := utils.NewConfig(map[string]string{
			"MENTOR_PROVIDER":   "anthropic",
			"ANTHROPIC_API_KEY": "test-key",
			"ANTHROPIC_MODEL":   "claude-test",
		})
		r, err := NewResponder(cfg, conversation.ContextCourseAssistant, profile)
		require.NoError(t, err)

		ar, ok := r.(*AnthropicResponder)
		require.True(t, ok)
		assert.EqualValues(t, "claude-test", ar.model)
		assert.EqualValues(t, 1024, ar.maxTokens)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewResponder(utils.NewConfig(map[string]string{"MENTOR_PROVIDER": "pigeon"}), conversation.ContextCourseAssistant, profile)
		assert.Error(t, err)
	})
}
