// Package eikon implements the source.Client interface against a local
// Eikon-style terminal gateway speaking JSON over HTTP.
package eikon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newswatch/internal/services"
	"newswatch/internal/source"
)

const (
	defaultBaseURL     = "http://127.0.0.1:9000/api/v1"
	defaultHTTPTimeout = 30 * time.Second
)

// Client talks to the terminal gateway.
type Client struct {
	appKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes the gateway client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default gateway base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a gateway client.
func NewClient(appKey string, opts ...Option) *Client {
	client := &Client{
		appKey:     strings.TrimSpace(appKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

var _ source.Client = (*Client)(nil)

type headlineRequest struct {
	Query    string `json:"query"`
	Count    int    `json:"count"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}

type headlineRecord struct {
	StoryID        string `json:"story_id"`
	Text           string `json:"text"`
	SourceCode     string `json:"source_code"`
	VersionCreated string `json:"version_created"`
	StoryURL       string `json:"story_url"`
}

type headlineResponse struct {
	Headlines []headlineRecord `json:"headlines"`
	Error     *apiError        `json:"error"`
}

type storyResponse struct {
	StoryHTML string    `json:"story_html"`
	Error     *apiError `json:"error"`
}

type statusResponse struct {
	SessionActive bool      `json:"session_active"`
	Error         *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Headlines runs one query against the gateway.
func (c *Client) Headlines(ctx context.Context, query string, limit int, since, until time.Time) ([]source.Headline, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrConfiguration, "source", "headlines", "query required", nil)
	}
	if limit <= 0 {
		limit = 100
	}
	reqBody := headlineRequest{Query: query, Count: limit}
	if !since.IsZero() {
		reqBody.DateFrom = since.UTC().Format(time.RFC3339)
	}
	if !until.IsZero() {
		reqBody.DateTo = until.UTC().Format(time.RFC3339)
	}

	var decoded headlineResponse
	if err := c.post(ctx, "/news/headlines", reqBody, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, classifyAPIError("headlines", decoded.Error)
	}

	headlines := make([]source.Headline, 0, len(decoded.Headlines))
	for _, record := range decoded.Headlines {
		if strings.TrimSpace(record.StoryID) == "" {
			continue
		}
		headline := source.Headline{
			ID:     record.StoryID,
			Text:   record.Text,
			Source: record.SourceCode,
			URL:    record.StoryURL,
		}
		if ts, err := time.Parse(time.RFC3339, record.VersionCreated); err == nil {
			headline.Timestamp = ts
		}
		headlines = append(headlines, headline)
	}
	return headlines, nil
}

// StoryBody fetches the full story text for a headline identifier.
func (c *Client) StoryBody(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", services.Wrap(services.ErrConfiguration, "source", "story", "story id required", nil)
	}
	endpoint, err := url.JoinPath(c.baseURL, "/news/story", url.PathEscape(id))
	if err != nil {
		return "", fmt.Errorf("source story: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("source story: request: %w", err)
	}
	var decoded storyResponse
	if err := c.do(req, "story", &decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil {
		return "", classifyAPIError("story", decoded.Error)
	}
	return decoded.StoryHTML, nil
}

// Ping verifies the gateway session is usable.
func (c *Client) Ping(ctx context.Context) error {
	endpoint, err := url.JoinPath(c.baseURL, "/status")
	if err != nil {
		return fmt.Errorf("source ping: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("source ping: request: %w", err)
	}
	var decoded statusResponse
	if err := c.do(req, "ping", &decoded); err != nil {
		return err
	}
	if decoded.Error != nil {
		return classifyAPIError("ping", decoded.Error)
	}
	if !decoded.SessionActive {
		return services.Wrap(services.ErrUnavailable, "source", "ping", "terminal session not running", nil)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("source %s: build url: %w", path, err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("source %s: encode request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("source %s: request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	req.Header.Set("X-App-Key", c.appKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(operation, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "source", operation, "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return classifyStatusError(operation, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrTransient, "source", operation, "decode response", err)
	}
	return nil
}

func classifyTransportError(operation string, err error) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return services.Wrap(services.ErrTimeout, "source", operation, "gateway timed out", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "source", operation, "gateway timed out", err)
	default:
		// Connection refused means the terminal gateway process is down.
		return services.Wrap(services.ErrUnavailable, "source", operation, "gateway unreachable", err)
	}
}

func classifyStatusError(operation string, status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	switch status {
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(message), "app key") {
			return services.Wrap(services.ErrConfiguration, "source", operation, "app key rejected", nil)
		}
		return services.Wrap(services.ErrTransient, "source", operation, fmt.Sprintf("http %d: %s", status, message), nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return services.Wrap(services.ErrUnauthorized, "source", operation, "gateway denied access", nil)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return services.Wrap(services.ErrTimeout, "source", operation, "gateway timed out", nil)
	case http.StatusServiceUnavailable:
		return services.Wrap(services.ErrUnavailable, "source", operation, "gateway unavailable", nil)
	default:
		return services.Wrap(services.ErrTransient, "source", operation, fmt.Sprintf("http %d: %s", status, message), nil)
	}
}

func classifyAPIError(operation string, apiErr *apiError) error {
	message := strings.TrimSpace(apiErr.Message)
	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "session") || strings.Contains(lowered, "proxy"):
		return services.Wrap(services.ErrUnavailable, "source", operation, message, nil)
	case strings.Contains(lowered, "app key") || strings.Contains(lowered, "appid"):
		return services.Wrap(services.ErrConfiguration, "source", operation, message, nil)
	case strings.Contains(lowered, "unauthorized") || strings.Contains(lowered, "permission"):
		return services.Wrap(services.ErrUnauthorized, "source", operation, message, nil)
	case strings.Contains(lowered, "timeout") || strings.Contains(lowered, "timed out"):
		return services.Wrap(services.ErrTimeout, "source", operation, message, nil)
	default:
		return services.Wrap(services.ErrTransient, "source", operation, message, nil)
	}
}
