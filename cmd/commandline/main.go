package main

import (
	"fmt"
	"os"

	"github.com/ethanbaker/mentor/pkg/sdk"
	"github.com/ethanbaker/mentor/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	baseURL     string
	apiKey      string
	userID      string
	contextType string
	contextID   string

	client *sdk.Client
)

var rootCmd = &cobra.Command{
	Use:   "mentor",
	Short: "Chat with an AI mentor from the terminal",
	Long: `Command line client for the mentor API.

Examples:
  mentor chat --user u1 --context course_assistant --context-id go-101
  mentor history --user u1 --context success_manager`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if userID == "" {
			return fmt.Errorf("--user is required")
		}
		client = sdk.NewClient(baseURL, apiKey)
		return nil
	},
}

func init() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}
	cfg := utils.NewConfigFromEnv(envFile)

	defaultURL := cfg.GetWithDefault("MENTOR_API_URL", "http://localhost:"+cfg.GetWithDefault("API_PORT", "8080"))

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", defaultURL, "mentor API base url")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", cfg.Get("API_KEY"), "API key")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", cfg.Get("MENTOR_USER"), "user id")
	rootCmd.PersistentFlags().StringVarP(&contextType, "context", "c", "success_manager", "mentor context (success_manager, course_assistant, community_assistant)")
	rootCmd.PersistentFlags().StringVar(&contextID, "context-id", "", "course or community id")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openRequest builds the view request from the global flags
func openRequest() *sdk.OpenViewRequest {
	return &sdk.OpenViewRequest{
		UserID:      userID,
		ContextType: contextType,
		ContextID:   contextID,
	}
}
