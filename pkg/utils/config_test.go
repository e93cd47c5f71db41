package utils

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("with nil values", func(t *testing.T) {
		config := NewConfig(nil)
		require.NotNil(t, config)
		assert.False(t, config.Has("anything"))
	})

	t.Run("with values", func(t *testing.T) {
		values := map[string]string{
			"key1": "value1",
			"key2": "value2",
		}
		config := NewConfig(values)

		assert.Equal(t, "value1", config.Get("key1"))
		assert.Equal(t, "value2", config.Get("key2"))

		// Verify it's a copy, not a reference
		values["key1"] = "modified"
		assert.Equal(t, "value1", config.Get("key1"))
	})
}

func TestNewConfigFromEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MENTOR_TEST_ENV_KEY=from_file\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MENTOR_TEST_ENV_KEY") })

	config := NewConfigFromEnv(envFile, filepath.Join(t.TempDir(), "missing.env"))

	require.NotNil(t, config)
	assert.Equal(t, "from_file", config.Get("MENTOR_TEST_ENV_KEY"))
}

func TestConfigGetWithDefault(t *testing.T) {
	config := NewConfig(map[string]string{
		"existing": "value",
		"empty":    "",
	})

	assert.Equal(t, "value", config.GetWithDefault("existing", "default"))
	assert.Equal(t, "default", config.GetWithDefault("empty", "default"))
	assert.Equal(t, "default", config.GetWithDefault("missing", "default"))
}

func TestConfigGetBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"ON", true},
		{"enabled", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"garbage", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			config := NewConfig(map[string]string{"flag": tt.value})
			assert.Equal(t, tt.want, config.GetBool("flag"))
		})
	}
}

func TestConfigGetIntWithDefault(t *testing.T) {
	config := NewConfig(map[string]string{
		"valid":   "42",
		"invalid": "forty-two",
	})

	assert.Equal(t, 42, config.GetIntWithDefault("valid", 7))
	assert.Equal(t, 7, config.GetIntWithDefault("invalid", 7))
	assert.Equal(t, 7, config.GetIntWithDefault("missing", 7))
}

func TestConfigGetDurationWithDefault(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"duration string", "1500ms", 1500 * time.Millisecond},
		{"minutes", "30m", 30 * time.Minute},
		{"bare integer is milliseconds", "250", 250 * time.Millisecond},
		{"invalid falls back", "soon", 2 * time.Second},
		{"negative falls back", "-1s", 2 * time.Second},
		{"empty falls back", "", 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewConfig(map[string]string{"d": tt.value})
			assert.Equal(t, tt.want, config.GetDurationWithDefault("d", 2*time.Second))
		})
	}
}

func TestConfigSetAndHas(t *testing.T) {
	config := NewConfig(nil)
	assert.False(t, config.Has("key"))

	config.Set("key", "value")
	assert.True(t, config.Has("key"))
	assert.Equal(t, "value", config.Get("key"))
}

func TestConfigThreadSafety(t *testing.T) {
	config := NewConfig(nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			config.Set("counter", string(rune('a'+n%26)))
		}(i)
		go func() {
			defer wg.Done()
			_ = config.GetWithDefault("counter", "none")
		}()
	}
	wg.Wait()

	assert.True(t, config.Has("counter"))
}
