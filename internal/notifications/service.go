// Package notifications pushes daemon events to an ntfy topic. Each event
// class can be disabled in configuration; without a topic the service is a
// noop so callers never need nil checks.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newswatch/internal/config"
	"newswatch/internal/mode"
	"newswatch/internal/store"
)

const userAgent = "Newswatch-Go/0.1.0"

// Service defines the notification surface exposed to daemon components.
type Service interface {
	NotifyDatabaseUpdated(ctx context.Context, count int) error
	NotifyHighImportance(ctx context.Context, article *store.Article) error
	NotifyModeChanged(ctx context.Context, change mode.Change) error
	NotifyCollectionError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		cfg:      cfg.Notifications,
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	cfg      config.Notifications
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyDatabaseUpdated(ctx context.Context, count int) error {
	if !n.cfg.DatabaseUpdates || count <= 0 {
		return nil
	}
	noun := "articles"
	if count == 1 {
		noun = "article"
	}
	data := payload{
		title:   "Newswatch - Database Updated",
		message: fmt.Sprintf("%d new %s collected", count, noun),
		tags:    []string{"newswatch", "collect", "updated"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyHighImportance(ctx context.Context, article *store.Article) error {
	if !n.cfg.HighImportance || article == nil {
		return nil
	}
	title := strings.TrimSpace(article.Title)
	var builder strings.Builder
	fmt.Fprintf(&builder, "Importance %d: %s", article.ImportanceScore, title)
	if summary := strings.TrimSpace(article.Summary); summary != "" {
		builder.WriteString("\n")
		builder.WriteString(summary)
	}
	data := payload{
		title:    "Newswatch - High Importance",
		message:  builder.String(),
		tags:     []string{"newswatch", "importance", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyModeChanged(ctx context.Context, change mode.Change) error {
	if !n.cfg.ModeChanges {
		return nil
	}
	message := fmt.Sprintf("Mode changed: %s -> %s", change.From, change.To)
	if reason := strings.TrimSpace(change.Reason); reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	data := payload{
		title:   "Newswatch - Mode Changed",
		message: message,
		tags:    []string{"newswatch", "mode", "changed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCollectionError(ctx context.Context, err error, contextLabel string) error {
	if !n.cfg.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Newswatch - Error",
		message:  builder.String(),
		tags:     []string{"newswatch", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Newswatch - Test",
		message:  "Notification system test",
		tags:     []string{"newswatch", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyDatabaseUpdated(context.Context, int) error           { return nil }
func (noopService) NotifyHighImportance(context.Context, *store.Article) error { return nil }
func (noopService) NotifyModeChanged(context.Context, mode.Change) error       { return nil }
func (noopService) NotifyCollectionError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
