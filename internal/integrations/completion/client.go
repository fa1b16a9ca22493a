// Package completion calls the hosted fallback responder: a JSON endpoint that
// takes {system, message} and answers {reply}.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4096
)

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type replyRequest struct {
	System  string `json:"system"`
	Message string `json:"message"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("completion: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type Client struct {
	http   *resty.Client
	url    string
	tokens TokenSource
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport, keeping resty's request
// handling.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = resty.NewWithClient(hc)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func NewClient(url string, tokens TokenSource, opts ...Option) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("completion: url must not be empty")
	}
	if tokens == nil {
		return nil, errors.New("completion: token source must not be nil")
	}
	c := &Client{
		http:   resty.New().SetTimeout(defaultTimeout),
		url:    url,
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Reply returns the responder's answer. An empty reply is an error so callers
// can fall back to their canned text.
func (c *Client) Reply(ctx context.Context, system, message string) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("completion: resolve token: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(replyRequest{System: system, Message: message}).
		Post(c.url)
	if err != nil {
		return "", fmt.Errorf("completion: request failed: %w", err)
	}
	if !res.IsSuccess() {
		body := res.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", &HTTPStatusError{StatusCode: res.StatusCode(), URL: c.url, Body: body}
	}

	var payload replyResponse
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return "", fmt.Errorf("completion: decode response: %w", err)
	}
	reply := strings.TrimSpace(payload.Reply)
	if reply == "" {
		return "", errors.New("completion: empty reply")
	}
	return reply, nil
}
