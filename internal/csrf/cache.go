package csrf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Cache holds the current anti-forgery token.
type Cache struct {
	client    *http.Client
	tokenURL  string
	warn      func(format string, args ...any)
	onFetched func(ok bool, errMsg string)

	mu    sync.RWMutex
	token string
}

// New creates a Cache that fetches from tokenURL using client. warn receives
// swallowed fetch failures; onFetched observes every fetch outcome. Both may
// be nil.
func New(client *http.Client, tokenURL string, warn func(string, ...any), onFetched func(bool, string)) *Cache {
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{
		client:    client,
		tokenURL:  tokenURL,
		warn:      warn,
		onFetched: onFetched,
	}
}

// Get returns the cached token, or the empty string before the first
// successful fetch.
func (c *Cache) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Fetch replaces the cached token with the token endpoint's response. On any
// network or HTTP failure the previous token, possibly absent, is left
// untouched and the failure is logged, never returned: callers proceed and
// let the eventual state-changing request fail with a typed error.
func (c *Cache) Fetch(ctx context.Context) {
	token, err := c.fetch(ctx)
	if err != nil {
		c.warnf("csrf token fetch failed: %v", err)
		c.fetched(false, err.Error())
		return
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.fetched(true, "")
}

func (c *Cache) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenURL, nil)
	if err != nil {
		return "", err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		return "", err
	}

	// The endpoint answers {"csrfToken": ...}; tolerate an enveloped
	// {"data": {"csrfToken": ...}} as well.
	var payload struct {
		CsrfToken string `json:"csrfToken"`
		Data      struct {
			CsrfToken string `json:"csrfToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	token := payload.CsrfToken
	if token == "" {
		token = payload.Data.CsrfToken
	}
	if token == "" {
		return "", fmt.Errorf("token endpoint returned no token")
	}
	return token, nil
}

func (c *Cache) warnf(format string, args ...any) {
	if c.warn != nil {
		c.warn(format, args...)
	}
}

func (c *Cache) fetched(ok bool, errMsg string) {
	if c.onFetched != nil {
		c.onFetched(ok, errMsg)
	}
}
