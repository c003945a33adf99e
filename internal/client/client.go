// ABOUTME: HTTP client for the Cashly REST API
// ABOUTME: Wraps auth and profile calls with error classification for session handling

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every request made by the client
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read
const maxBodySize = 1 << 20

// Client is the API client for the Cashly backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	jar        *scopedJar

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the transport timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client. The client's cookie jar
// is installed when the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		if hc.Jar != nil {
			c.jar = newScopedJar(hc.Jar)
		}
		hc.Jar = c.jar
		c.httpClient = hc
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	base, _ := cookiejar.New(nil)
	jar := newScopedJar(base)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		jar:     jar,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GoogleAuthURL returns the URL that starts the external identity flow.
// The backend redirects the browser to redirect once the provider is done.
func (c *Client) GoogleAuthURL(redirect string) string {
	return c.baseURL + "/auth/google?redirect=" + url.QueryEscape(redirect)
}

// Profile calls GET /user/profile
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	data, err := c.do(ctx, http.MethodGet, "/user/profile", nil)
	if err != nil {
		return nil, err
	}
	profile, err := decodeProfile(data)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("invalid response from backend: missing user profile")
	}
	return profile, nil
}

// Login calls POST /auth/login
func (c *Client) Login(ctx context.Context, req *LoginRequest) (*Profile, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/login", req)
	if err != nil {
		return nil, err
	}
	profile, err := decodeProfile(data)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("invalid response from backend: missing user profile")
	}
	return profile, nil
}

// Register calls POST /auth/register
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*Profile, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/register", req)
	if err != nil {
		return nil, err
	}
	return decodeProfile(data)
}

// RefreshToken calls POST /auth/refresh-token. A token in the response
// replaces the bearer token. The returned profile is nil when the backend
// only confirms the refresh.
func (c *Client) RefreshToken(ctx context.Context) (*Profile, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/refresh-token", nil)
	if err != nil {
		return nil, err
	}
	if token := decodeToken(data); token != "" {
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
	}
	return decodeProfile(data)
}

// Logout calls POST /auth/logout
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil)
	return err
}

// UpdateSettings calls POST /user/settings
func (c *Client) UpdateSettings(ctx context.Context, req *SettingsRequest) (*Profile, error) {
	data, err := c.do(ctx, http.MethodPost, "/user/settings", req)
	if err != nil {
		return nil, err
	}
	profile, err := decodeProfile(data)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("invalid response from backend: missing user profile")
	}
	return profile, nil
}

// do performs a JSON request and returns the raw body of a 2xx response
func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp.StatusCode, data)
	}

	return data, nil
}

// handleRequestError converts transport and context errors to transient failures
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: request canceled", ErrTransport)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", ErrTransport)
	}
	return fmt.Errorf("%w: cannot connect to backend at %s: %w", ErrTransport, c.baseURL, err)
}

// handleErrorResponse parses API error responses
func handleErrorResponse(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil {
		apiErr.Message = errResp.Message
		if apiErr.Message == "" {
			apiErr.Message = errResp.Error
		}
	}
	return apiErr
}

// decodeToken returns the bearer token carried by a response body, if any
func decodeToken(data []byte) string {
	var body struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Token != "" {
		return body.Token
	}
	return body.AccessToken
}

// decodeProfile accepts both {"user": {...}} and a bare profile object.
// It returns nil when the body carries no recognizable profile.
func decodeProfile(data []byte) (*Profile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var envelope struct {
		User *Profile `json:"user"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid response from backend: %w", err)
	}
	if envelope.User != nil {
		return envelope.User, nil
	}

	var bare Profile
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("invalid response from backend: %w", err)
	}
	if bare.ID == "" && bare.Email == "" {
		return nil, nil
	}
	return &bare, nil
}
