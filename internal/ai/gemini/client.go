// Package gemini implements the ai.Client interface against the
// Google Generative Language REST API.
package gemini

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

	"newswatch/internal/ai"
	"newswatch/internal/services"
)

const (
	defaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Client talks to the generateContent endpoint. One request per call,
// no streaming.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

var _ ai.Client = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRetryMaxAttempts overrides the retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client for the supplied API key.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:           strings.TrimSpace(apiKey),
		baseURL:          defaultBaseURL,
		httpClient:       &http.Client{Timeout: defaultHTTPTimeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Generate issues a single-turn completion against the named model and
// returns the concatenated candidate text.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	model = strings.TrimSpace(model)
	prompt = strings.TrimSpace(prompt)
	if model == "" {
		return "", services.Wrap(services.ErrConfiguration, "gemini", "generate", "model required", nil)
	}
	if prompt == "" {
		return "", services.Wrap(services.ErrConfiguration, "gemini", "generate", "prompt required", nil)
	}
	if c.apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "gemini", "generate", "api key required", nil)
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.generateOnce(ctx, model, payload)
		if err == nil {
			return text, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", services.Wrap(services.ErrTimeout, "gemini", "generate", "retry wait interrupted", sleepErr)
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", services.Wrap(services.ErrTransient, "gemini", "generate",
		fmt.Sprintf("failed after %d attempts", attempts), lastErr)
}

func (c *Client) generateOnce(ctx context.Context, model string, payload generateRequest) (string, error) {
	endpoint, err := url.JoinPath(c.baseURL, "models", model+":generateContent")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "gemini", "generate", "build url", err)
	}
	endpoint += "?key=" + url.QueryEscape(c.apiKey)

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "gemini", "generate", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "gemini", "generate", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "gemini", "generate", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatusError(resp, body)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrTransient, "gemini", "generate", "decode response", err)
	}
	if decoded.Error != nil {
		return "", classifyAPIError(decoded.Error)
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return "", services.Wrap(services.ErrTransient, "gemini", "generate",
			"prompt blocked: "+decoded.PromptFeedback.BlockReason, nil)
	}

	var builder strings.Builder
	for _, candidate := range decoded.Candidates {
		for _, p := range candidate.Content.Parts {
			builder.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", services.Wrap(services.ErrTransient, "gemini", "generate", "empty candidate text", nil)
	}
	return text, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "gemini", "generate", "request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "gemini", "generate", "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrTimeout, "gemini", "generate", "request canceled", err)
	}
	return services.Wrap(services.ErrUnavailable, "gemini", "generate", "api unreachable", err)
}

func classifyStatusError(resp *http.Response, body []byte) error {
	snippet := summarizeBody(body)
	var decoded struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != nil {
		return classifyAPIError(decoded.Error)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrUnauthorized, "gemini", "generate", "http "+resp.Status, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrRateLimited, "gemini", "generate", "http "+resp.Status, nil)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return services.Wrap(services.ErrTimeout, "gemini", "generate", "http "+resp.Status, nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "gemini", "generate", "http "+resp.Status+": "+snippet, nil)
	default:
		return services.Wrap(services.ErrTransient, "gemini", "generate", "http "+resp.Status+": "+snippet, nil)
	}
}

func classifyAPIError(apiErr *apiError) error {
	message := strings.TrimSpace(apiErr.Message)
	detail := fmt.Sprintf("api error %d (%s): %s", apiErr.Code, apiErr.Status, message)
	lower := strings.ToLower(message)
	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		return services.Wrap(services.ErrRateLimited, "gemini", "generate", detail, nil)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden ||
		apiErr.Status == "PERMISSION_DENIED" || apiErr.Status == "UNAUTHENTICATED":
		return services.Wrap(services.ErrUnauthorized, "gemini", "generate", detail, nil)
	case strings.Contains(lower, "api key"):
		return services.Wrap(services.ErrConfiguration, "gemini", "generate", detail, nil)
	case apiErr.Code == http.StatusNotFound || apiErr.Status == "NOT_FOUND":
		return services.Wrap(services.ErrConfiguration, "gemini", "generate", detail, nil)
	case apiErr.Status == "DEADLINE_EXCEEDED":
		return services.Wrap(services.ErrTimeout, "gemini", "generate", detail, nil)
	default:
		return services.Wrap(services.ErrTransient, "gemini", "generate", detail, nil)
	}
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, services.ErrRateLimited) ||
		errors.Is(err, services.ErrTimeout) ||
		errors.Is(err, services.ErrTransient) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, capped.
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	maxDelay := c.retryMaxDelay
	if base <= 0 {
		return 0
	}
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func summarizeBody(body []byte) string {
	trimmed := strings.Join(strings.Fields(string(body)), " ")
	const limit = 160
	runes := []rune(trimmed)
	if len(runes) > limit {
		trimmed = string(runes[:limit]) + "..."
	}
	if trimmed == "" {
		return "<empty>"
	}
	return trimmed
}
