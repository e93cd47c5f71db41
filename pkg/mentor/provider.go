package mentor

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/ethanbaker/mentor/pkg/utils"
)

// NewResponder builds the responder for a context type according to MENTOR_PROVIDER
// ("openai" or "anthropic"). MODEL / ANTHROPIC_MODEL apply to profiles that name no model.
func NewResponder(cfg *utils.Config, ct conversation.ContextType, profile Profile) (Responder, error) {
	switch provider := strings.ToLower(cfg.GetWithDefault("MENTOR_PROVIDER", "openai")); provider {
	case "openai":
		if profile.Model == "" {
			profile.Model = cfg.Get("MODEL")
		}
		return NewAgentResponder("mentor-"+string(ct), profile), nil

	case "anthropic":
		if profile.Model == "" {
			profile.Model = cfg.Get("ANTHROPIC_MODEL")
		}

		var opts []option.RequestOption
		if key := cfg.Get("ANTHROPIC_API_KEY"); key != "" {
			opts = append(opts, option.WithAPIKey(key))
		}
		client := anthropic.NewClient(opts...)

		return NewAnthropicResponder(&client, profile, int64(cfg.GetIntWithDefault("ANTHROPIC_MAX_TOKENS", 1024))), nil

	default:
		return nil, fmt.Errorf("unknown MENTOR_PROVIDER %q", provider)
	}
}
