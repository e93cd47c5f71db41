package mentor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"gopkg.in/yaml.v3"
)

// DefaultFallback is appended when a reply fails or comes back empty
const DefaultFallback = "I'm having trouble connecting right now. Please try again in a moment."

// Profile configures one mentor feature
type Profile struct {
	Greeting         string `json:"greeting" yaml:"greeting"`                   // Seed turn for conversations with no history
	Instructions     string `json:"instructions" yaml:"instructions"`           // System prompt
	InstructionsPath string `json:"instructions_path" yaml:"instructions_path"` // Read into Instructions when set
	Model            string `json:"model" yaml:"model"`
	Fallback         string `json:"fallback" yaml:"fallback"`
}

// Profiles maps context types to mentor profiles
type Profiles struct {
	Default Profile                              `yaml:"default"`
	Mentors map[conversation.ContextType]Profile `yaml:"mentors"`
}

// DefaultProfiles returns the built-in profiles
func DefaultProfiles() *Profiles {
	return &Profiles{
		Default: Profile{
			Greeting:     "Hi! I'm your mentor. How can I help you today?",
			Instructions: "You are a supportive mentor inside an online learning community. Answer concisely and encourage the student.",
			Fallback:     DefaultFallback,
		},
		Mentors: map[conversation.ContextType]Profile{
			conversation.ContextSuccessManager: {
				Greeting:     "Hi! I'm your success manager. Want to review how your community is doing?",
				Instructions: "You are a success manager for a course creator. Use the provided statistics to suggest concrete next steps for growing and retaining their community.",
			},
			conversation.ContextCourseAssistant: {
				Greeting:     "Hi! I'm the learning assistant for this course. What are you working on?",
				Instructions: "You are a learning assistant for a single course. Use the course metadata provided, explain concepts step by step, and never hand out full homework solutions.",
			},
			conversation.ContextCommunityAssistant: {
				Greeting:     "Hi! Ask me anything about this community.",
				Instructions: "You help members find their way around a creator's community: events, courses and discussions.",
			},
		},
	}
}

// LoadProfiles reads a YAML profile file over the built-in defaults. An empty path returns the defaults.
func LoadProfiles(path string) (*Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles %s: %w", path, err)
	}

	var file Profiles
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles %s: %w", path, err)
	}

	// Instruction paths are relative to the profile file
	base := filepath.Dir(path)
	resolve := func(p *Profile) error {
		if p.InstructionsPath == "" {
			return nil
		}
		promptPath := p.InstructionsPath
		if !filepath.IsAbs(promptPath) {
			promptPath = filepath.Join(base, promptPath)
		}

		content, err := os.ReadFile(promptPath)
		if err != nil {
			return fmt.Errorf("failed to read instructions %s: %w", promptPath, err)
		}
		p.Instructions = strings.TrimSpace(string(content))
		return nil
	}

	if err := resolve(&file.Default); err != nil {
		return nil, err
	}
	profiles.Default = merge(profiles.Default, file.Default)

	for ct, p := range file.Mentors {
		if _, err := conversation.ParseContextType(string(ct)); err != nil {
			return nil, fmt.Errorf("profiles %s: %w", path, err)
		}
		if err := resolve(&p); err != nil {
			return nil, err
		}
		profiles.Mentors[ct] = merge(profiles.Mentors[ct], p)
	}

	return profiles, nil
}

// For returns the profile of a context type with empty fields filled from the default
func (p *Profiles) For(ct conversation.ContextType) Profile {
	return merge(p.Default, p.Mentors[ct])
}

// merge overlays the non-empty fields of top onto base
func merge(base, top Profile) Profile {
	if top.Greeting != "" {
		base.Greeting = top.Greeting
	}
	if top.Instructions != "" {
		base.Instructions = top.Instructions
	}
	if top.Model != "" {
		base.Model = top.Model
	}
	if top.Fallback != "" {
		base.Fallback = top.Fallback
	}
	base.InstructionsPath = ""
	return base
}
