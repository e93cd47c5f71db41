package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const mentorBase = "/api/mentor/views"

// OpenView opens a chat view. The returned view may still be loading the most recent conversation.
func (c *Client) OpenView(ctx context.Context, req *OpenViewRequest) (*View, error) {
	var out ApiResponse[View]
	if err := c.doJSON(ctx, http.MethodPost, mentorBase, req, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("open view", &out); err != nil {
		return nil, err
	}

	if out.Data.ID == "" {
		return nil, fmt.Errorf("no id returned")
	}

	return &out.Data, nil
}

// GetView gets the current state of a view
func (c *Client) GetView(ctx context.Context, viewID string) (*View, error) {
	return c.viewCall(ctx, "get view", http.MethodGet, viewPath(viewID), nil)
}

// SendMessage sends a user message. The reply arrives asynchronously; poll GetView until ReplyPending is false.
func (c *Client) SendMessage(ctx context.Context, viewID, content string) (*View, error) {
	return c.viewCall(ctx, "send message", http.MethodPost, viewPath(viewID)+"/messages", &PostMessageRequest{Content: content})
}

// StartNew starts a fresh conversation in the view
func (c *Client) StartNew(ctx context.Context, viewID string) (*View, error) {
	return c.viewCall(ctx, "start new conversation", http.MethodPost, viewPath(viewID)+"/new", nil)
}

// Resume continues a past conversation in the view
func (c *Client) Resume(ctx context.Context, viewID, conversationID string) (*View, error) {
	return c.viewCall(ctx, "resume conversation", http.MethodPost, viewPath(viewID)+"/resume", &ResumeRequest{ConversationID: conversationID})
}

// History lists past conversations for the view's user and context. A limit of 0 uses the server default.
func (c *Client) History(ctx context.Context, viewID string, limit int) ([]ConversationSummary, error) {
	path := viewPath(viewID) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out ApiResponse[HistoryResponse]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("list history", &out); err != nil {
		return nil, err
	}

	return out.Data.Conversations, nil
}

// DeleteConversation deletes one of the user's past conversations
func (c *Client) DeleteConversation(ctx context.Context, viewID, conversationID string) (*View, error) {
	return c.viewCall(ctx, "delete conversation", http.MethodDelete, viewPath(viewID)+"/conversations/"+url.PathEscape(conversationID), nil)
}

// CloseView tears down a view
func (c *Client) CloseView(ctx context.Context, viewID string) error {
	return c.doJSON(ctx, http.MethodDelete, viewPath(viewID), nil, nil)
}

// Health checks that the backend is up
func (c *Client) Health(ctx context.Context) error {
	var out ApiResponse[HealthResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return err
	}
	return checkStatus("check health", &out)
}

func (c *Client) viewCall(ctx context.Context, action, method, path string, in any) (*View, error) {
	var out ApiResponse[View]
	if err := c.doJSON(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	if err := checkStatus(action, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

func viewPath(viewID string) string {
	return mentorBase + "/" + url.PathEscape(viewID)
}
