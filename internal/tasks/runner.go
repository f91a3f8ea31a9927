// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/history"
	"github.com/jeranaias/genstudio-tui/internal/session"
	"github.com/jeranaias/genstudio-tui/internal/util"
)

// ErrJobInFlight is returned when a video job is submitted while a
// previous one has not reached a terminal state.
var ErrJobInFlight = errors.New("a video job is already in flight")

// Event is a snapshot of job state pushed to the UI.
type Event struct {
	JobID      string
	Status     Status
	Progress   int
	Detail     string
	OutputPath string
	Err        error
}

// Notify delivers Events. Called from the runner goroutine; the
// receiver must be safe to call off the UI goroutine (tea.Program.Send
// qualifies).
type Notify func(Event)

// VideoClient is the remote surface the runner drives. Satisfied by
// *gemini.Client.
type VideoClient interface {
	SubmitVideo(ctx context.Context, req gemini.VideoRequest) (string, error)
	PollVideo(ctx context.Context, operationName string, progress gemini.ProgressFunc) (string, error)
	DownloadVideo(ctx context.Context, videoID string, w io.Writer) (int64, error)
}

// Runner executes video generation pipelines, one at a time.
type Runner struct {
	client VideoClient
	store  *session.Store
	index  *history.Index // optional, best-effort
	logger zerolog.Logger

	mu      sync.Mutex
	current *Job
}

// NewRunner creates a pipeline runner bound to a session store. index
// may be nil to skip cross-session indexing.
func NewRunner(client VideoClient, store *session.Store, index *history.Index, logger zerolog.Logger) *Runner {
	return &Runner{
		client: client,
		store:  store,
		index:  index,
		logger: logger,
	}
}

// Current returns the most recent job, which may be terminal, or nil.
func (r *Runner) Current() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Cancel aborts the in-flight job, if any.
func (r *Runner) Cancel() {
	r.mu.Lock()
	job := r.current
	r.mu.Unlock()
	if job != nil && !job.Status().Terminal() {
		job.Cancel()
	}
}

// Generate starts the submit/poll/download pipeline in the background.
// Returns ErrJobInFlight if a previous job has not finished.
func (r *Runner) Generate(ctx context.Context, req gemini.VideoRequest, notify Notify) (*Job, error) {
	r.mu.Lock()
	if r.current != nil && !r.current.Status().Terminal() {
		r.mu.Unlock()
		return nil, ErrJobInFlight
	}

	ctx, cancel := context.WithCancel(ctx)
	job := newJob(req.Prompt, cancel)
	r.current = job
	r.mu.Unlock()

	go r.run(ctx, cancel, job, req, notify)
	return job, nil
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, job *Job, req gemini.VideoRequest, notify Notify) {
	defer cancel()

	emit := func() {
		if notify == nil {
			return
		}
		progress, detail := job.Progress()
		notify(Event{
			JobID:      job.ID,
			Status:     job.Status(),
			Progress:   progress,
			Detail:     detail,
			OutputPath: job.OutputPath(),
			Err:        job.Err(),
		})
	}

	finish := func(err error) {
		if errors.Is(err, context.Canceled) {
			job.fail(err, StatusCanceled)
			r.logger.Info().Str("job", job.ID).Msg("video job canceled")
			_ = r.store.Log("video job canceled")
		} else {
			job.fail(err, StatusFailed)
			r.logger.Error().Err(err).Str("job", job.ID).Msg("video job failed")
			_ = r.store.Log("video job failed: " + err.Error())
		}
		emit()
	}

	// Submit.
	job.set(StatusSubmitting, 0, "submitting request")
	emit()
	_ = r.store.Log("video job submitted: " + util.TruncateString(req.Prompt, 80))

	opName, err := r.client.SubmitVideo(ctx, req)
	if err != nil {
		finish(fmt.Errorf("submit failed: %w", err))
		return
	}
	_ = r.store.RecordAPICall()

	job.mu.Lock()
	job.operationName = opName
	job.mu.Unlock()

	// Poll until the operation resolves.
	job.set(StatusPolling, 0, "operation running")
	emit()

	videoID, err := r.client.PollVideo(ctx, opName, func(p gemini.Progress) {
		job.set(StatusPolling, p.Percent, p.Detail)
		emit()
	})
	if err != nil {
		finish(fmt.Errorf("poll failed: %w", err))
		return
	}

	job.mu.Lock()
	job.videoID = videoID
	job.mu.Unlock()

	// Download straight into the session's video directory.
	job.set(StatusDownloading, 100, "downloading "+videoID)
	emit()

	f, err := r.store.CreateVideoFile()
	if err != nil {
		finish(err)
		return
	}
	size, err := r.client.DownloadVideo(ctx, videoID, f)
	closeErr := f.Close()
	if err != nil {
		finish(fmt.Errorf("download failed: %w", err))
		return
	}
	if closeErr != nil {
		finish(closeErr)
		return
	}
	_ = r.store.RecordAPICall()

	if err := r.store.SaveVideoSidecar(f.Name(), videoID, req.Prompt, size); err != nil {
		finish(err)
		return
	}

	if r.index != nil {
		err := r.index.Record(context.Background(), history.Artifact{
			Kind:     history.KindVideo,
			Session:  r.store.ID,
			Prompt:   req.Prompt,
			Filename: filepath.Base(f.Name()),
			FileSize: size,
		})
		if err != nil {
			r.logger.Warn().Err(err).Msg("artifact index write failed")
		}
	}

	job.mu.Lock()
	job.outputPath = f.Name()
	job.fileSize = size
	job.mu.Unlock()

	job.set(StatusComplete, 100, "saved "+filepath.Base(f.Name()))
	r.logger.Info().
		Str("job", job.ID).
		Str("file", f.Name()).
		Int64("bytes", size).
		Msg("video job complete")
	emit()
}
