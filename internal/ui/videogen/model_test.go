// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package videogen

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/session"
	"github.com/jeranaias/genstudio-tui/internal/tasks"
	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

// scriptedClient drives a happy-path pipeline with one progress tick.
type scriptedClient struct {
	block bool
	mu    sync.Mutex
	reqs  []gemini.VideoRequest
}

func (c *scriptedClient) SubmitVideo(ctx context.Context, req gemini.VideoRequest) (string, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	return "op1", nil
}

func (c *scriptedClient) PollVideo(ctx context.Context, op string, progress gemini.ProgressFunc) (string, error) {
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if progress != nil {
		progress(gemini.Progress{State: gemini.StatePolling, Percent: 60, Detail: "60%"})
	}
	return "vid1", nil
}

func (c *scriptedClient) DownloadVideo(ctx context.Context, id string, w io.Writer) (int64, error) {
	n, err := w.Write([]byte("mp4"))
	return int64(n), err
}

// eventSink collects events pushed by the runner.
type eventSink struct {
	mu     sync.Mutex
	events []tea.Msg
}

func (s *eventSink) send(msg tea.Msg) {
	s.mu.Lock()
	s.events = append(s.events, msg)
	s.mu.Unlock()
}

func (s *eventSink) waitTerminal(t *testing.T) []tea.Msg {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		for _, msg := range s.events {
			if e, ok := msg.(EventMsg); ok && e.Event.Status.Terminal() {
				out := append([]tea.Msg(nil), s.events...)
				s.mu.Unlock()
				return out
			}
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no terminal event")
	return nil
}

func newTestModel(t *testing.T, client *scriptedClient) (Model, *eventSink) {
	t.Helper()
	store, err := session.NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	runner := tasks.NewRunner(client, store, nil, zerolog.Nop())
	sink := &eventSink{}
	m := New(styles.NewTheme(), runner, "blurry, low quality", sink.send)
	m.SetSize(100, 30)
	return m, sink
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestSubmitRunsPipeline(t *testing.T) {
	client := &scriptedClient{}
	m, sink := newTestModel(t, client)

	m = typeText(m, "a storm at sea")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Working() {
		t.Fatal("model not working after submit")
	}

	events := sink.waitTerminal(t)
	for _, msg := range events {
		m, _ = m.Update(msg)
	}

	if m.Working() {
		t.Error("model still working after terminal event")
	}
	if !strings.Contains(m.View(), "saved ") {
		t.Errorf("view missing saved artifact:\n%s", m.View())
	}

	// Defaults and negative prompt travel with the request.
	req := client.reqs[0]
	if req.AspectRatio != "16:9" || req.Resolution != "720p" {
		t.Errorf("request defaults = %s/%s", req.AspectRatio, req.Resolution)
	}
	if req.NegativePrompt != "blurry, low quality" {
		t.Errorf("negative prompt = %q", req.NegativePrompt)
	}
}

func TestProgressEventUpdatesView(t *testing.T) {
	client := &scriptedClient{}
	m, sink := newTestModel(t, client)

	m = typeText(m, "p")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	events := sink.waitTerminal(t)

	// Apply only up to the 60% polling event.
	for _, msg := range events {
		e := msg.(EventMsg)
		m, _ = m.Update(msg)
		if e.Event.Status == tasks.StatusPolling && e.Event.Progress == 60 {
			break
		}
	}

	view := m.View()
	if !strings.Contains(view, " 60%") {
		t.Errorf("view missing progress bar at 60%%:\n%s", view)
	}
	if !strings.Contains(view, "ctrl+x to cancel") {
		t.Error("cancel hint not shown while working")
	}
}

func TestSecondSubmitRejectedWhileWorking(t *testing.T) {
	client := &scriptedClient{block: true}
	m, _ := newTestModel(t, client)

	m = typeText(m, "one")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Working() {
		t.Fatal("first submit did not start")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.View(), tasks.ErrJobInFlight.Error()) {
		t.Error("in-flight rejection not shown")
	}

	// Cleanup: cancel the blocked job.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
}

func TestCancelKeyStopsJob(t *testing.T) {
	client := &scriptedClient{block: true}
	m, sink := newTestModel(t, client)

	m = typeText(m, "p")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})

	events := sink.waitTerminal(t)
	last := events[len(events)-1].(EventMsg)
	if last.Event.Status != tasks.StatusCanceled {
		t.Errorf("terminal status = %v, want Canceled", last.Event.Status)
	}

	m, _ = m.Update(tea.Msg(last))
	if m.Working() {
		t.Error("model still working after cancel")
	}
}

func TestSettingsCycles(t *testing.T) {
	m, _ := newTestModel(t, &scriptedClient{})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.Resolution() != "1080p" {
		t.Errorf("resolution after cycle = %q", m.Resolution())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.Resolution() != "720p" {
		t.Errorf("resolution did not wrap: %q", m.Resolution())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	if m.AspectRatio() != "9:16" {
		t.Errorf("aspect after cycle = %q", m.AspectRatio())
	}
}

func TestStaleEventIgnored(t *testing.T) {
	m, _ := newTestModel(t, &scriptedClient{})

	// An event for an unknown job must not disturb idle state.
	m, _ = m.Update(EventMsg{Event: tasks.Event{JobID: "ghost", Status: tasks.StatusFailed}})
	if m.Working() || strings.Contains(m.View(), "Failed") {
		t.Error("stale event changed view state")
	}
}
