// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/history"
	"github.com/jeranaias/genstudio-tui/internal/session"
)

// fakeClient scripts the three pipeline calls.
type fakeClient struct {
	mu sync.Mutex

	submitName string
	submitErr  error
	submits    int

	pollID       string
	pollErr      error
	pollProgress []gemini.Progress
	pollBlock    bool // block until context cancellation

	videoBytes  []byte
	downloadErr error
}

func (f *fakeClient) SubmitVideo(ctx context.Context, req gemini.VideoRequest) (string, error) {
	f.mu.Lock()
	f.submits++
	f.mu.Unlock()
	return f.submitName, f.submitErr
}

func (f *fakeClient) PollVideo(ctx context.Context, operationName string, progress gemini.ProgressFunc) (string, error) {
	if f.pollBlock {
		<-ctx.Done()
		return "", ctx.Err()
	}
	for _, p := range f.pollProgress {
		if progress != nil {
			progress(p)
		}
	}
	return f.pollID, f.pollErr
}

func (f *fakeClient) DownloadVideo(ctx context.Context, videoID string, w io.Writer) (int64, error) {
	if f.downloadErr != nil {
		return 0, f.downloadErr
	}
	n, err := w.Write(f.videoBytes)
	return int64(n), err
}

func newTestRunner(t *testing.T, client VideoClient) (*Runner, *session.Store) {
	t.Helper()
	store, err := session.NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(client, store, nil, zerolog.Nop()), store
}

// collectEvents returns a Notify that records every event, and a
// function that waits for a terminal event.
func collectEvents(t *testing.T) (Notify, func() []Event) {
	t.Helper()
	var mu sync.Mutex
	var events []Event
	done := make(chan struct{})
	var once sync.Once

	notify := func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		if e.Status.Terminal() {
			once.Do(func() { close(done) })
		}
	}
	wait := func() []Event {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for terminal event")
		}
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), events...)
	}
	return notify, wait
}

func TestGeneratePipeline(t *testing.T) {
	client := &fakeClient{
		submitName: "models/veo-3.0-generate-001/operations/op1",
		pollProgress: []gemini.Progress{
			{State: gemini.StatePolling, Percent: 40, Detail: "40%"},
		},
		pollID:     "vid123",
		videoBytes: []byte("mp4-bytes"),
	}
	runner, store := newTestRunner(t, client)
	notify, wait := collectEvents(t)

	job, err := runner.Generate(context.Background(), gemini.VideoRequest{Prompt: "a storm at sea"}, notify)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	events := wait()
	last := events[len(events)-1]
	if last.Status != StatusComplete {
		t.Fatalf("terminal status = %v, err = %v", last.Status, last.Err)
	}
	if job.Status() != StatusComplete {
		t.Errorf("job status = %v, want Complete", job.Status())
	}

	// Artifact landed in the session's video directory with a sidecar.
	path := job.OutputPath()
	if filepath.Dir(path) != store.VideosDir() {
		t.Errorf("artifact dir = %q, want %q", filepath.Dir(path), store.VideosDir())
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "mp4-bytes" {
		t.Errorf("artifact content = %q, err = %v", data, err)
	}
	if _, err := os.Stat(path + ".json"); err != nil {
		t.Errorf("missing sidecar: %v", err)
	}

	// Submission and download each count as one remote call.
	if got := store.APICalls(); got != 2 {
		t.Errorf("APICalls() = %d, want 2", got)
	}

	// Poll progress surfaced through events.
	sawProgress := false
	for _, e := range events {
		if e.Status == StatusPolling && e.Progress == 40 {
			sawProgress = true
		}
	}
	if !sawProgress {
		t.Error("no polling event carried the 40% progress")
	}
}

func TestGenerateSecondJobRejected(t *testing.T) {
	client := &fakeClient{submitName: "op1", pollBlock: true}
	runner, _ := newTestRunner(t, client)

	job, err := runner.Generate(context.Background(), gemini.VideoRequest{Prompt: "one"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Give the pipeline a moment to reach the blocking poll.
	waitFor(t, func() bool { return job.Status() == StatusPolling })

	if _, err := runner.Generate(context.Background(), gemini.VideoRequest{Prompt: "two"}, nil); !errors.Is(err, ErrJobInFlight) {
		t.Errorf("second Generate() error = %v, want ErrJobInFlight", err)
	}

	// Once the first job ends, a new one is accepted.
	job.Cancel()
	waitFor(t, func() bool { return job.Status().Terminal() })

	client2 := &fakeClient{submitName: "op2", pollID: "v", videoBytes: []byte("x")}
	runner.client = client2
	notify, wait := collectEvents(t)
	if _, err := runner.Generate(context.Background(), gemini.VideoRequest{Prompt: "three"}, notify); err != nil {
		t.Fatalf("Generate() after terminal job error = %v", err)
	}
	wait()
}

func TestGenerateCancellation(t *testing.T) {
	client := &fakeClient{submitName: "op1", pollBlock: true}
	runner, _ := newTestRunner(t, client)
	notify, wait := collectEvents(t)

	job, err := runner.Generate(context.Background(), gemini.VideoRequest{Prompt: "p"}, notify)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return job.Status() == StatusPolling })

	runner.Cancel()
	events := wait()

	last := events[len(events)-1]
	if last.Status != StatusCanceled {
		t.Errorf("terminal status = %v, want Canceled", last.Status)
	}
	if !errors.Is(job.Err(), context.Canceled) {
		t.Errorf("job error = %v, want context.Canceled", job.Err())
	}
}

func TestGenerateSubmitFailure(t *testing.T) {
	client := &fakeClient{submitErr: errors.New("boom")}
	runner, store := newTestRunner(t, client)
	notify, wait := collectEvents(t)

	job, err := runner.Generate(context.Background(), gemini.VideoRequest{Prompt: "p"}, notify)
	if err != nil {
		t.Fatal(err)
	}
	wait()

	if job.Status() != StatusFailed {
		t.Errorf("status = %v, want Failed", job.Status())
	}
	if job.Err() == nil {
		t.Error("job has no error after failed submit")
	}
	// Failed submit is not a counted call.
	if got := store.APICalls(); got != 0 {
		t.Errorf("APICalls() = %d, want 0", got)
	}
}

func TestGeneratePollFailureLeavesNoArtifact(t *testing.T) {
	client := &fakeClient{submitName: "op1", pollErr: gemini.ErrPollTimeout}
	runner, store := newTestRunner(t, client)
	notify, wait := collectEvents(t)

	job, err := runner.Generate(context.Background(), gemini.VideoRequest{Prompt: "p"}, notify)
	if err != nil {
		t.Fatal(err)
	}
	wait()

	if !errors.Is(job.Err(), gemini.ErrPollTimeout) {
		t.Errorf("job error = %v, want ErrPollTimeout", job.Err())
	}

	entries, err := os.ReadDir(store.VideosDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("video dir has %d entries after failed poll, want 0", len(entries))
	}
}

func TestGenerateRecordsHistory(t *testing.T) {
	ix, err := history.Open(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	client := &fakeClient{submitName: "op1", pollID: "vid9", videoBytes: []byte("mp4")}
	store, err := session.NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(client, store, ix, zerolog.Nop())
	notify, wait := collectEvents(t)

	if _, err := runner.Generate(context.Background(), gemini.VideoRequest{Prompt: "indexed clip"}, notify); err != nil {
		t.Fatal(err)
	}
	wait()

	hits, err := ix.Search(context.Background(), "indexed clip", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("index has %d hits, want 1", len(hits))
	}
	if hits[0].Kind != history.KindVideo || hits[0].Session != store.ID {
		t.Errorf("indexed artifact = %+v", hits[0])
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusSubmitting:  false,
		StatusPolling:     false,
		StatusDownloading: false,
		StatusComplete:    true,
		StatusFailed:      true,
		StatusCanceled:    true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
