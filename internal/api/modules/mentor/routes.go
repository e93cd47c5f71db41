package mentor_module

import (
	"fmt"

	"github.com/ethanbaker/api/pkg/api_key"
	"github.com/ethanbaker/mentor/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Register routes for the mentor module
func RegisterRoutes(g *gin.RouterGroup, cfg *utils.Config, svc *Service) error {
	// Make api key validator
	validator, err := makeApiKeyValidator(cfg)
	if err != nil {
		return err
	}

	ctl := &controller{svc: svc}

	// Create base group for mentor routes
	group := g.Group("/mentor")
	group.Handlers = append(group.Handlers, api_key.APIKeyHeaderHandler(validator))

	// View lifecycle
	group.POST("/views", ctl.OpenView)        // Open a view and load the most recent conversation
	group.GET("/views/:id", ctl.GetView)      // Get transcript and status of a view
	group.DELETE("/views/:id", ctl.CloseView) // Tear down a view

	// Conversation operations
	group.POST("/views/:id/messages", ctl.PostMessage)                    // Send a message, reply arrives asynchronously
	group.POST("/views/:id/new", ctl.StartNew)                            // Start a new conversation
	group.GET("/views/:id/history", ctl.GetHistory)                       // List past conversations
	group.POST("/views/:id/resume", ctl.Resume)                           // Continue a past conversation
	group.DELETE("/views/:id/conversations/:cid", ctl.DeleteConversation) // Delete a past conversation

	return nil
}

// makeApiKeyValidator checks if the provided API key is valid
func makeApiKeyValidator(cfg *utils.Config) (func(key string) bool, error) {
	// Get api key from config
	apiKey := cfg.Get("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY not set in environment")
	}

	return func(key string) bool {
		return apiKey == key
	}, nil
}
