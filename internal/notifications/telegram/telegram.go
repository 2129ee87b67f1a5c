// Package telegram delivers chat messages through the Bot API sendMessage call.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ParseModeHTML = "HTML"

	maxErrorBody = 512
)

type Config struct {
	APIURL  string
	Token   string
	ChatID  string
	Timeout time.Duration
}

// Sender is what the notification consumer depends on.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type Client struct {
	endpoint string
	chatID   string
	http     *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.APIURL, "/") + "/bot" + cfg.Token + "/sendMessage",
		chatID:   cfg.ChatID,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Send posts text to the configured chat. Any non-2xx answer is an error.
func (c *Client) Send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", text)
	form.Set("parse_mode", ParseModeHTML)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the bot token, so only the cause is reported.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("telegram request failed: %w", urlErr.Err)
		}
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("telegram returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the Bot API asked us to come back later.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
