// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Configuration constants for the gateway client.
const (
	// DefaultBaseURL is the root of the AI gateway.
	DefaultBaseURL = "https://api.thucchien.ai"

	// DefaultTimeout is the default timeout for synchronous API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps response bodies read into memory. Video
	// downloads stream and are not subject to this limit.
	MaxResponseSize = 50 * 1024 * 1024 // 50MB; image/audio payloads are base64
)

// Sentinel errors.
var (
	// ErrNoAPIKey indicates the API key is empty; rejected locally
	// before any network call.
	ErrNoAPIKey = errors.New("API key is empty")

	// ErrAuthFailed indicates the credential probe was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrPollTimeout indicates the video status loop exhausted its
	// attempt budget without the operation completing.
	ErrPollTimeout = errors.New("video operation did not complete within the poll budget")
)

// APIError represents a non-2xx response from the gateway.
type APIError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error (HTTP %d): %s", e.Status, e.Body)
}

// ShapeError represents a success-shaped response that is missing an
// expected field. Body holds the raw response for diagnosis.
type ShapeError struct {
	Field string
	Body  string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("response missing %s: %s", e.Field, e.Body)
}

// Client talks to the AI gateway. Zero-value is not usable; construct
// with NewClient.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout; video downloads are
	// context-controlled instead.
	streamClient *http.Client
	limiter      *rate.Limiter
	logger       zerolog.Logger

	// Model selection
	chatModel   string
	imageModel  string
	videoModel  string
	speechModel string

	// Video poll policy
	pollInterval    time.Duration
	maxPollAttempts int
	retryBudget     int
}

// NewClient creates a gateway client with the given API key.
// The client is created even for an empty key; every call then fails
// with ErrNoAPIKey until a key is set.
func NewClient(apiKey string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &Client{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Transport: transport, Timeout: DefaultTimeout},
		streamClient: &http.Client{Transport: transport},
		logger:       zerolog.Nop(),

		chatModel:   "gemini-2.5-flash",
		imageModel:  "gemini-2.5-flash-image-preview",
		videoModel:  "veo-3.0-generate-001",
		speechModel: "gemini-2.5-flash-preview-tts",

		pollInterval:    60 * time.Second,
		maxPollAttempts: 30,
		retryBudget:     3,
	}
}

// WithBaseURL sets a custom gateway root.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithTimeout sets the synchronous request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithLogger sets the client logger.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.logger = logger
	return c
}

// WithRateLimit caps outbound requests per second (0 disables pacing).
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	} else {
		c.limiter = nil
	}
	return c
}

// WithModels overrides the per-modality model names. Empty strings keep
// the current value.
func (c *Client) WithModels(chat, image, video, speech string) *Client {
	if chat != "" {
		c.chatModel = chat
	}
	if image != "" {
		c.imageModel = image
	}
	if video != "" {
		c.videoModel = video
	}
	if speech != "" {
		c.speechModel = speech
	}
	return c
}

// WithPollPolicy configures the video status loop: wait between polls,
// maximum polls, and the transient-error retry budget per poll.
func (c *Client) WithPollPolicy(interval time.Duration, maxAttempts, retryBudget int) *Client {
	if interval > 0 {
		c.pollInterval = interval
	}
	if maxAttempts > 0 {
		c.maxPollAttempts = maxAttempts
	}
	if retryBudget >= 0 {
		c.retryBudget = retryBudget
	}
	return c
}

// SetAPIKey replaces the API key.
func (c *Client) SetAPIKey(apiKey string) {
	c.apiKey = strings.TrimSpace(apiKey)
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key for
// logging. The key itself is never logged.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// CREDENTIAL PROBE
// =============================================================================

// ValidateKey performs one lightweight round-trip to verify the API key.
// An empty key is rejected locally with ErrNoAPIKey. Any remote rejection
// or transport failure is reported as ErrAuthFailed; there is no retry.
func (c *Client) ValidateKey(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNoAPIKey
	}

	probe := chatRequest{
		Model:     c.chatModel,
		Messages:  []ChatMessage{{Role: "user", Content: "Hi"}},
		MaxTokens: 8,
	}

	c.logger.Info().Str("key", c.KeyFingerprint()).Msg("validating API key")

	var resp chatResponse
	if err := c.postJSON(ctx, c.baseURL+"/chat/completions", c.bearerHeaders(), probe, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

// bearerHeaders are used by the OpenAI-compatible endpoints.
func (c *Client) bearerHeaders() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.apiKey)
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", "genstudio/0.1.0")
	return h
}

// googHeaders are used by the Gemini-style endpoints.
func (c *Client) googHeaders() http.Header {
	h := http.Header{}
	h.Set("x-goog-api-key", c.apiKey)
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", "genstudio/0.1.0")
	return h
}

// postJSON marshals reqBody, POSTs it, and decodes a 2xx response into
// out. A non-2xx response is returned as *APIError with the body attached.
func (c *Client) postJSON(ctx context.Context, url string, headers http.Header, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers

	data, err := c.do(req)
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// postRaw POSTs a pre-marshaled body and returns the raw 2xx response,
// for callers that need to keep the body for shape diagnostics.
func (c *Client) postRaw(ctx context.Context, url string, headers http.Header, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers
	return c.do(req)
}

// getJSON GETs url and returns the raw 2xx body.
func (c *Client) getJSON(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers
	return c.do(req)
}

// do executes a request with pacing, reads the body under the size cap,
// and maps non-2xx statuses to *APIError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.wait(req.Context()); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// wait blocks on the rate limiter when pacing is enabled.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// readBody reads a response body under MaxResponseSize.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", int64(MaxResponseSize))
	}
	return body, nil
}
