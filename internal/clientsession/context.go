// Package clientsession caches the signed-in user's public profile for a
// browser-like client. The cache is advisory: it decides what to render,
// never what is allowed. The server re-checks every request.
package clientsession

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/domain"
)

const (
	whoamiPath = "/api/user"
	logoutPath = "/api/logout"
)

// Context holds one client session. Create one per browser tab or test;
// instances share nothing.
type Context struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	mu         sync.RWMutex
	profile    *domain.Profile
	generation uint64
}

// New returns a context talking to baseURL. A cookie jar is attached when
// client has none, so the credential cookies round-trip like in a browser.
func New(baseURL string, client *http.Client, logger *zap.Logger) (*Context, error) {
	if client == nil {
		client = &http.Client{}
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		clone := *client
		clone.Jar = jar
		client = &clone
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}, nil
}

// Client exposes the HTTP client so callers share the session cookies.
func (c *Context) Client() *http.Client { return c.client }

// Load issues one whoami request and caches the result. A 401 caches nil.
// If Set ran while the request was in flight, the response is discarded.
func (c *Context) Load(ctx context.Context) (*domain.Profile, error) {
	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+whoamiPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whoami: %w", err)
	}
	defer resp.Body.Close()

	var profile *domain.Profile
	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			User domain.Profile `json:"user"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("whoami: decode: %w", err)
		}
		profile = &body.User
	case http.StatusUnauthorized:
	default:
		return nil, fmt.Errorf("whoami: unexpected status %d", resp.StatusCode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.Debug("discarding stale whoami response")
		return c.profile, nil
	}
	c.profile = profile
	return profile, nil
}

// Principal returns the cached profile, or nil when signed out.
func (c *Context) Principal() *domain.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// Set replaces the cached profile, e.g. after login. Set(nil) signs out locally.
func (c *Context) Set(profile *domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = profile
	c.generation++
}

// Logout calls the logout endpoint and, once it succeeds, clears the cache
// before returning.
func (c *Context) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+logoutPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout: unexpected status %d", resp.StatusCode)
	}
	c.Set(nil)
	return nil
}

// IsAuthenticated reports whether a profile is cached.
func (c *Context) IsAuthenticated() bool {
	return c.Principal() != nil
}

// IsAdmin reports whether the cached profile carries the admin role.
func (c *Context) IsAdmin() bool {
	p := c.Principal()
	return p != nil && p.Role == domain.RoleAdmin
}

// CanEdit reports whether edit controls should be shown for content by authorID.
func (c *Context) CanEdit(authorID string) bool {
	p := c.Principal()
	if p == nil {
		return false
	}
	return p.Role == domain.RoleAdmin || (authorID != "" && p.ID == authorID)
}
