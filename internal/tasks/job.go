// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// JOB STATUS
// =============================================================================

// Status is the lifecycle state of a background job.
type Status string

const (
	// StatusSubmitting indicates the job is being sent to the remote service.
	StatusSubmitting Status = "Submitting"

	// StatusPolling indicates the remote operation is running and being polled.
	StatusPolling Status = "Polling"

	// StatusDownloading indicates the finished artifact is being fetched.
	StatusDownloading Status = "Downloading"

	// StatusComplete indicates the artifact is saved to the session.
	StatusComplete Status = "Complete"

	// StatusFailed indicates the job ended with an error.
	StatusFailed Status = "Failed"

	// StatusCanceled indicates the job was canceled by the user.
	StatusCanceled Status = "Canceled"
)

// String returns the string representation of the status.
func (s Status) String() string { return string(s) }

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCanceled
}

// =============================================================================
// JOB
// =============================================================================

// Job is one background video generation from submission to saved file.
type Job struct {
	// ID uniquely identifies this job.
	ID string

	// Prompt is the generation prompt, kept for sidecars and the index.
	Prompt string

	mu            sync.RWMutex
	status        Status
	progress      int
	detail        string
	operationName string
	videoID       string
	outputPath    string
	fileSize      int64
	startTime     time.Time
	endTime       time.Time
	err           error
	cancel        context.CancelFunc
}

func newJob(prompt string, cancel context.CancelFunc) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		status:    StatusSubmitting,
		startTime: time.Now(),
		cancel:    cancel,
	}
}

// Status returns the current lifecycle state.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Progress returns the last reported completion percentage (0-100).
func (j *Job) Progress() (int, string) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress, j.detail
}

// OutputPath returns the saved artifact path, empty until complete.
func (j *Job) OutputPath() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.outputPath
}

// Err returns the job's terminal error, if any.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// Duration returns the job's running time so far, or its total time if
// it has ended.
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.endTime.IsZero() {
		return time.Since(j.startTime)
	}
	return j.endTime.Sub(j.startTime)
}

// Cancel aborts the job's pipeline. Safe to call at any point.
func (j *Job) Cancel() {
	j.mu.RLock()
	cancel := j.cancel
	j.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (j *Job) set(status Status, progress int, detail string) {
	j.mu.Lock()
	j.status = status
	if progress >= 0 {
		j.progress = progress
	}
	j.detail = detail
	if status.Terminal() {
		j.endTime = time.Now()
	}
	j.mu.Unlock()
}

func (j *Job) fail(err error, status Status) {
	j.mu.Lock()
	j.status = status
	j.err = err
	j.endTime = time.Now()
	j.mu.Unlock()
}
