package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// Client wraps calls to the mentor backend
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the underlying http client
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// APIError is returned when the backend answers with a non-2xx status
type APIError struct {
	Method  string
	Path    string
	Code    int
	Message string
	Detail  any
}

func (e *APIError) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("[BACKEND]: backend '%s %s' failed: %d: %s (%v)", e.Method, e.Path, e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[BACKEND]: backend '%s %s' failed: %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// On error, read body and surface the envelope message if there is one
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Method: method, Path: path, Code: resp.StatusCode, Message: string(b)}

		var envelope ApiResponse[any]
		if json.Unmarshal(b, &envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
			apiErr.Detail = envelope.Error
		}
		return apiErr
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

// checkStatus converts a non-success envelope into an error
func checkStatus[T any](action string, out *ApiResponse[T]) error {
	switch out.Status {
	case api_types.StatusFail:
		return fmt.Errorf("failed to %s: %s", action, out.Message)
	case api_types.StatusError:
		return fmt.Errorf("error trying to %s (%s): %v", action, out.Message, out.Error)
	}
	return nil
}
