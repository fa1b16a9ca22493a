package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// tokenPayload is the JSON shape stored in SSM for API tokens.
type tokenPayload struct {
	Token string `json:"token"`
}

// GetToken reads a SecureString holding {"token": "..."} and returns the
// token.
func (c *Client) GetToken(ctx context.Context, name string) (string, error) {
	return fetchToken(ctx, c, name)
}

func fetchToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("paramstore: getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: token parameter name is empty")
	}
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch token: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal token value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", errors.New("paramstore: API token is empty")
	}
	return tp.Token, nil
}

// TokenSource supplies a bearer token to an HTTP client.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token taken from configuration.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", errors.New("paramstore: static token is empty")
	}
	return string(s), nil
}

// CachedToken fetches a token parameter on first use and keeps it for the
// lifetime of the process. A failed fetch is retried on the next call.
type CachedToken struct {
	getter Getter
	name   string

	mu    sync.Mutex
	value string
}

func NewCachedToken(getter Getter, name string) (*CachedToken, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: token parameter name must not be empty")
	}
	return &CachedToken{getter: getter, name: name}, nil
}

func (t *CachedToken) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.value != "" {
		return t.value, nil
	}
	v, err := fetchToken(ctx, t.getter, t.name)
	if err != nil {
		return "", err
	}
	t.value = v
	return v, nil
}
