// Package api talks to the analysis backend over JSON/HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/bizanalyst/internal/session"
)

// Error is a failure reported by the backend itself ({"success": false}).
// Any other error returned by Client means the backend could not be reached
// or answered with something that is not a valid response.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Client is the analysis backend client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL, e.g. http://localhost:5000.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend address the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat sends message with the given conversation context and returns the
// assistant reply.
func (c *Client) Chat(ctx context.Context, message string, history []session.Message) (string, error) {
	if history == nil {
		history = []session.Message{}
	}
	body, err := json.Marshal(ChatRequest{Message: message, History: history})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathChat, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp ChatResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &Error{Message: resp.Error}
	}
	return resp.Response, nil
}

// AnalyzeFile uploads a file for analysis.
func (c *Client) AnalyzeFile(ctx context.Context, name string, content io.Reader) (Analysis, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(FileField, name)
	if err != nil {
		return Analysis{}, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return Analysis{}, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Analysis{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathAnalyzeFile, &buf)
	if err != nil {
		return Analysis{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp Analysis
	if err := c.do(req, &resp); err != nil {
		return Analysis{}, err
	}
	if !resp.Success {
		return Analysis{}, &Error{Message: resp.Error}
	}
	return resp, nil
}

// Health queries the backend status.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathHealth, nil)
	if err != nil {
		return Health{}, err
	}
	var resp Health
	if err := c.do(req, &resp); err != nil {
		return Health{}, err
	}
	return resp, nil
}

// do sends req and decodes the JSON body into out regardless of the status
// code: the backend reports failures in the body.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
