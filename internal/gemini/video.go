// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// =============================================================================
// PROGRESS REPORTING
// =============================================================================

// JobState labels a PollVideo progress update: Polling while the
// operation runs, Resolved once it completes. The surrounding pipeline
// (submit, download, failure) tracks its own lifecycle.
type JobState int

const (
	StatePolling JobState = iota
	StateResolved
)

// String returns the state name.
func (s JobState) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// VideoRequest describes one generation job.
type VideoRequest struct {
	Prompt      string
	AspectRatio string
	Resolution  string

	// Image is an optional reference image; MIMEType accompanies it.
	Image    []byte
	MIMEType string

	// NegativePrompt is sent with every submission.
	NegativePrompt string
}

// Progress reports poller state to the caller. Percent is -1 when the
// status response carried no progress figure.
type Progress struct {
	State   JobState
	Percent int
	Detail  string
}

// ProgressFunc receives progress updates from the video pipeline. It is
// called from the polling goroutine; implementations must be safe for
// that.
type ProgressFunc func(Progress)

// report invokes the progress callback when one is set.
func report(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// videoInstance is one instance in the predictLongRunning payload.
type videoInstance struct {
	Prompt string         `json:"prompt"`
	Image  *videoRefImage `json:"image,omitempty"`
}

type videoRefImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

// videoParameters carries the generation options.
type videoParameters struct {
	NegativePrompt   string `json:"negativePrompt,omitempty"`
	AspectRatio      string `json:"aspectRatio"`
	Resolution       string `json:"resolution"`
	PersonGeneration string `json:"personGeneration"`
}

type videoSubmitRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoSubmitResponse struct {
	Name string `json:"name"`
}

// operationStatus is the long-running operation resource.
type operationStatus struct {
	Done     bool `json:"done"`
	Metadata struct {
		ProgressPercent *int `json:"progressPercent"`
	} `json:"metadata"`
	Response json.RawMessage `json:"response"`
}

// completionA is the current completion schema: the video URI sits
// several levels deep and ends with a ":download" marker.
type completionA struct {
	GenerateVideoResponse struct {
		GeneratedSamples []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

// completionB is the legacy completion schema kept for backward
// compatibility with older gateway responses.
type completionB struct {
	Video struct {
		Name string `json:"name"`
	} `json:"video"`
}

// =============================================================================
// SUBMIT
// =============================================================================

// SubmitVideo submits a generation job and returns the operation handle.
// A 2xx response without the handle is a *ShapeError and the job must be
// treated as failed; no poll is issued for it.
//
// The person-generation policy follows the reference image: "allow_all"
// for text-only jobs, "allow_adult" when a reference image is attached.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNoAPIKey
	}

	instance := videoInstance{Prompt: req.Prompt}
	personPolicy := "allow_all"
	if len(req.Image) > 0 {
		mimeType := req.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		instance.Image = &videoRefImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image),
			MIMEType:           mimeType,
		}
		personPolicy = "allow_adult"
	}

	payload := videoSubmitRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			NegativePrompt:   req.NegativePrompt,
			AspectRatio:      req.AspectRatio,
			Resolution:       req.Resolution,
			PersonGeneration: personPolicy,
		},
	}

	url := fmt.Sprintf("%s/gemini/v1beta/models/%s:predictLongRunning", c.baseURL, c.videoModel)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	raw, err := c.postRaw(ctx, url, c.googHeaders(), body)
	if err != nil {
		return "", err
	}

	var resp videoSubmitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Name == "" {
		return "", &ShapeError{Field: "name", Body: string(raw)}
	}

	c.logger.Info().Str("operation", resp.Name).Msg("video job submitted")
	return resp.Name, nil
}

// =============================================================================
// POLL
// =============================================================================

// PollVideo polls the operation until it completes and returns the
// content identifier for download.
//
// The loop is bounded: at most maxPollAttempts status checks, one per
// poll interval. Transient failures (network errors and 5xx statuses)
// are retried within each attempt under a capped exponential backoff
// budget; other non-2xx statuses fail immediately. Exhausting the
// attempt budget returns ErrPollTimeout.
func (c *Client) PollVideo(ctx context.Context, operationName string, progress ProgressFunc) (string, error) {
	url := c.operationURL(operationName)

	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		raw, err := c.pollOnce(ctx, url)
		if err != nil {
			return "", err
		}

		var status operationStatus
		if err := json.Unmarshal(raw, &status); err != nil {
			return "", fmt.Errorf("failed to parse operation status: %w", err)
		}

		if status.Done {
			id, err := resolveVideoID(status.Response)
			if err != nil {
				return "", err
			}
			c.logger.Info().Str("video_id", id).Int("polls", attempt).Msg("video job completed")
			report(progress, Progress{State: StateResolved, Percent: 100, Detail: "video ready"})
			return id, nil
		}

		percent := -1
		if status.Metadata.ProgressPercent != nil {
			percent = *status.Metadata.ProgressPercent
		}
		c.logger.Debug().Int("attempt", attempt).Int("percent", percent).Msg("video job in progress")
		report(progress, Progress{State: StatePolling, Percent: percent,
			Detail: fmt.Sprintf("waiting %s before next check", c.pollInterval)})

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrPollTimeout, c.maxPollAttempts)
}

// pollOnce issues one status request, retrying transient failures under
// the backoff budget.
func (c *Client) pollOnce(ctx context.Context, url string) ([]byte, error) {
	var raw []byte

	op := func() error {
		var err error
		raw, err = c.getJSON(ctx, url, c.googHeaders())
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			// Client errors will not heal; stop retrying.
			return backoff.Permanent(err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retryBudget)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return raw, nil
}

// operationURL builds the status URL for an operation handle. Handles
// already rooted at "models/" address the operation resource directly.
func (c *Client) operationURL(operationName string) string {
	if strings.HasPrefix(operationName, "models/") {
		return fmt.Sprintf("%s/gemini/v1beta/%s", c.baseURL, operationName)
	}
	return fmt.Sprintf("%s/gemini/v1beta/models/%s/operations/%s", c.baseURL, c.videoModel, operationName)
}

// =============================================================================
// RESOLVE
// =============================================================================

// resolveVideoID extracts the content identifier from a completed
// operation's response, trying the current schema then the legacy one.
func resolveVideoID(response json.RawMessage) (string, error) {
	if len(response) > 0 {
		var a completionA
		if err := json.Unmarshal(response, &a); err == nil {
			samples := a.GenerateVideoResponse.GeneratedSamples
			if len(samples) > 0 {
				if id := idFromDownloadURI(samples[0].Video.URI); id != "" {
					return id, nil
				}
			}
		}

		var b completionB
		if err := json.Unmarshal(response, &b); err == nil && b.Video.Name != "" {
			return b.Video.Name, nil
		}
	}

	return "", &ShapeError{
		Field: "response.generateVideoResponse.generatedSamples[0].video.uri",
		Body:  string(response),
	}
}

// idFromDownloadURI pulls the identifier out of a download URI: the
// final path segment up to the ":download" marker
// (".../files/abc123:download" -> "abc123").
func idFromDownloadURI(uri string) string {
	if !strings.Contains(uri, ":download") {
		return ""
	}
	seg := uri[strings.LastIndex(uri, "/")+1:]
	if i := strings.Index(seg, ":"); i > 0 {
		return seg[:i]
	}
	return ""
}

// =============================================================================
// DOWNLOAD
// =============================================================================

// DownloadVideo streams the finished asset into w and returns the byte
// count. The response is not buffered; the context governs the whole
// transfer.
func (c *Client) DownloadVideo(ctx context.Context, videoID string, w io.Writer) (int64, error) {
	if !c.IsConfigured() {
		return 0, ErrNoAPIKey
	}

	url := fmt.Sprintf("%s/gemini/download/v1beta/files/%s:download?alt=media", c.baseURL, videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = c.googHeaders()

	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download interrupted after %d bytes: %w", n, err)
	}

	c.logger.Info().Str("video_id", videoID).Int64("bytes", n).Msg("video downloaded")
	return n, nil
}
