// Package remote provides an HTTP client for accessing a running chatvault
// server, exposed as a query.Engine.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wesm/chatvault/internal/query"
)

// Client performs requests against a chatvault server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for creating a remote client.
type Config struct {
	URL           string
	AllowInsecure bool // permit plain http to non-loopback hosts
	Timeout       time.Duration
}

// New creates a new remote client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote URL is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("remote URL must include a host (e.g., http://localhost:8080)")
	}

	// Plain http is fine on loopback; anywhere else it needs an opt-in.
	if parsedURL.Scheme == "http" && !cfg.AllowInsecure && !isLoopback(parsedURL.Hostname()) {
		return nil, fmt.Errorf("HTTPS required for remote connections to %s\n\n"+
			"Options:\n"+
			"  1. Put the server behind a TLS proxy and use https://\n"+
			"  2. For trusted networks: pass --insecure", parsedURL.Host)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Close is a no-op for HTTP client.
func (c *Client) Close() error {
	return nil
}

// doRequest performs a GET request.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// getJSON performs a GET and decodes a 200 response into v.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v interface{}) error {
	resp, err := c.doRequest(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIError is a non-200 response.
type APIError struct {
	StatusCode int
	Code       string // machine-readable error, e.g. "not_found"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap maps API error codes back to the query sentinels, so callers can
// use errors.Is the same way for local and remote engines.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "not_found":
		return query.ErrNotFound
	case "invalid_page":
		return query.ErrInvalidPage
	}
	return nil
}

// handleErrorResponse reads an error response and returns an *APIError.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && (parsed.Message != "" || parsed.Error != "") {
		msg := parsed.Message
		if msg == "" {
			msg = parsed.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Code: parsed.Error, Message: msg}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
