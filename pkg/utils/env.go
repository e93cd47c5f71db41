package utils

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given .env files into the process environment and returns the whole
// environment as a map. Files that don't exist are skipped; variables already set win.
func LoadEnv(files ...string) map[string]string {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			slog.Warn("could not load env file", "file", file, "error", err)
		}
	}

	config := make(map[string]string)
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if ok && key != "" {
			config[key] = value
		}
	}

	return config
}
