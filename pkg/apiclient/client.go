// Package apiclient is the frontend-facing gateway to the journal API. It
// attaches the stored access token to every call and, on a 401, performs at
// most one token refresh before replaying the original request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const DefaultRefreshLimit = 3

var (
	ErrNoRefreshToken   = errors.New("no refresh token stored")
	ErrRefreshExhausted = errors.New("too many consecutive refresh attempts")
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu              sync.Mutex
	accessToken     string
	refreshToken    string
	refreshAttempts int
	refreshLimit    int
}

func NewClient(baseURL string) *Client {
	return NewClientWithRefreshLimit(baseURL, DefaultRefreshLimit)
}

// NewClientWithRefreshLimit bounds the consecutive refresh attempts the
// client makes before it gives up and drops back to unauthenticated.
func NewClientWithRefreshLimit(baseURL string, limit int) *Client {
	return &Client{
		baseURL:      baseURL,
		refreshLimit: limit,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *Client) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken != "" || c.refreshToken != ""
}

func (c *Client) DiscardTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.refreshToken = ""
}

// Do sends one API request. The caller owns the response body on a nil
// error. On a 401 the client refreshes once and replays the request; on any
// unrecoverable failure the stored tokens are discarded and the original
// outcome is surfaced.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		payload = data
	}
	return c.do(ctx, method, path, payload, false)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, retried bool) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		// No server reachable: unrecoverable for the current session.
		c.DiscardTokens()
		return nil, err
	}

	// The retried flag guarantees a second 401 never loops.
	if resp.StatusCode == http.StatusUnauthorized && !retried {
		if refreshErr := c.refreshAccess(ctx); refreshErr != nil {
			c.DiscardTokens()
			return resp, nil
		}
		resp.Body.Close()
		return c.do(ctx, method, path, payload, true)
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	access := c.accessToken
	c.mu.Unlock()
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	return c.httpClient.Do(req)
}

// refreshAccess asks the server for a fresh access token using the stored
// refresh token. Attempts are counted across requests and the counter only
// resets on success.
func (c *Client) refreshAccess(ctx context.Context) error {
	c.mu.Lock()
	if c.refreshAttempts >= c.refreshLimit {
		c.mu.Unlock()
		return ErrRefreshExhausted
	}
	c.refreshAttempts++
	refresh := c.refreshToken
	c.mu.Unlock()

	if refresh == "" {
		return ErrNoRefreshToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/refresh", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.AddCookie(&http.Cookie{
		Name:  "refreshToken",
		Value: refresh,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh failed with status: %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.mu.Lock()
	c.accessToken = result.AccessToken
	c.refreshAttempts = 0
	c.mu.Unlock()

	return nil
}
