// Package client calls the board API over HTTP, one method per endpoint.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Client wraps http.Client with helpers for the board API's JSON endpoints.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Store holds the lastBoardId slot. FetchBoard clears it when the board
	// no longer exists.
	Store KeyValueStore
}

// New creates a Client for baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, store KeyValueStore) *Client {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		Store:   store,
	}
}

// Error is returned for every non-2xx response. Message is meant for users.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// do sends a request and decodes a 2xx JSON response into out. Any other
// status is reported through onStatus, which maps it to a user message.
func (c *Client) do(ctx context.Context, method, path string, body, out any, onStatus func(status int) string) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Error{Status: resp.StatusCode, Message: onStatus(resp.StatusCode)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func message(msg string) func(int) string {
	return func(int) string { return msg }
}
