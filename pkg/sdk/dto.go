package sdk

import (
	"encoding/json"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  api_types.StatusType `json:"status"`          // Status message
	Code    int                  `json:"code"`            // Status code
	Message string               `json:"message"`         // Human-readable message
	Data    T                    `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any                  `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a format suitable for JSON responses
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccess(message string) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  api_types.StatusSuccess,
		Code:    200,
		Message: message,
	}
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

// NewAcceptedResponse is a success response for work that continues in the background
func NewAcceptedResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    202,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope. Errors are flattened to their message so they survive JSON encoding.
func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	if e, ok := err.(error); ok {
		err = e.Error()
	}

	return ApiResponse[any]{
		Status:  api_types.StatusError,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

/** Requests */

// OpenViewRequest opens a chat view for a user in a mentor context
type OpenViewRequest struct {
	UserID      string         `json:"user_id" binding:"required"`
	ContextType string         `json:"context_type" binding:"required"` // success_manager, course_assistant or community_assistant
	ContextID   string         `json:"context_id"`                      // Course or community id, if any
	Params      map[string]any `json:"params"`                          // Extra parameters passed to the mentor
}

// PostMessageRequest represents the request body for sending a message in a view
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ResumeRequest selects a past conversation to continue
type ResumeRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

/** Responses */

// Turn is one message in a transcript
type Turn struct {
	Role      string    `json:"role"` // user or assistant
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// View is the current state of an open chat view
type View struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	ContextType    string `json:"context_type"`
	ContextID      string `json:"context_id,omitempty"`
	Transcript     []Turn `json:"transcript"`
	ReplyPending   bool   `json:"reply_pending"`
	ConversationID string `json:"conversation_id,omitempty"`
	State          string `json:"state"`
}

// ConversationSummary is one entry of a user's conversation history
type ConversationSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ContextType string    `json:"context_type"`
	ContextID   string    `json:"context_id,omitempty"`
	TurnCount   int       `json:"turn_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HistoryResponse lists past conversations, newest first
type HistoryResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Count         int                   `json:"count"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}
