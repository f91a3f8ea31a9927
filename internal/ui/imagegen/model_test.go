// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package imagegen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/session"
	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

type fakeImager struct {
	generated []byte
	edited    []byte
	err       error

	gotPrompt string
	gotAspect string
	gotMIME   string
	gotInput  []byte
}

func (f *fakeImager) GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	f.gotPrompt, f.gotAspect = prompt, aspectRatio
	return f.generated, f.err
}

func (f *fakeImager) EditImage(ctx context.Context, prompt string, image []byte, mimeType, aspectRatio string) ([]byte, error) {
	f.gotPrompt, f.gotAspect, f.gotMIME, f.gotInput = prompt, aspectRatio, mimeType, image
	return f.edited, f.err
}

func newTestModel(t *testing.T, client Imager) (Model, *session.Store) {
	t.Helper()
	store, err := session.NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	m := New(styles.NewTheme(), client, store, nil)
	m.SetSize(100, 30)
	return m, store
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// resolve runs the submit batch until the terminal message appears.
func resolve(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("no command returned")
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			switch m := c().(type) {
			case DoneMsg, ErrorMsg:
				return m
			}
		}
		t.Fatal("batch produced no terminal message")
	}
	return msg
}

func TestGenerateSavesArtifact(t *testing.T) {
	client := &fakeImager{generated: []byte("png-bytes")}
	m, store := newTestModel(t, client)

	m = typeText(m, "a red fox")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Working() {
		t.Error("model not working after submit")
	}

	msg := resolve(t, cmd)
	done, ok := msg.(DoneMsg)
	if !ok {
		t.Fatalf("terminal message = %T (%v), want DoneMsg", msg, msg)
	}
	m, _ = m.Update(done)

	if m.Working() {
		t.Error("model still working after done")
	}
	if client.gotPrompt != "a red fox" {
		t.Errorf("prompt sent = %q", client.gotPrompt)
	}
	if client.gotAspect != "16:9" {
		t.Errorf("aspect sent = %q, want default 16:9", client.gotAspect)
	}

	data, err := os.ReadFile(done.Path)
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("artifact content = %q, err = %v", data, err)
	}
	if _, err := os.Stat(done.Path + ".json"); err != nil {
		t.Errorf("missing sidecar: %v", err)
	}
	if store.APICalls() != 1 {
		t.Errorf("APICalls() = %d, want 1", store.APICalls())
	}
}

func TestAspectRatioCycles(t *testing.T) {
	m, _ := newTestModel(t, &fakeImager{})
	if m.AspectRatio() != "16:9" {
		t.Fatalf("default aspect = %q", m.AspectRatio())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	if m.AspectRatio() != "9:16" {
		t.Errorf("after one cycle = %q, want 9:16", m.AspectRatio())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	if m.AspectRatio() != "16:9" {
		t.Errorf("cycle did not wrap: %q", m.AspectRatio())
	}
}

func TestEditModeRequiresInputPath(t *testing.T) {
	m, _ := newTestModel(t, &fakeImager{edited: []byte("x")})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT}) // switch to edit
	m = typeText(m, "make it blue")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.Working() {
		t.Error("edit without input path started a request")
	}
	_ = cmd
	if !strings.Contains(m.View(), "input image") {
		t.Error("missing-path error not shown")
	}
}

func TestEditSendsInputImage(t *testing.T) {
	inputPath := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(inputPath, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	client := &fakeImager{edited: []byte("edited-bytes")}
	m, _ := newTestModel(t, client)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = typeText(m, "make it blue")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown}) // focus path field
	m = typeText(m, inputPath)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := resolve(t, cmd)
	done, ok := msg.(DoneMsg)
	if !ok {
		t.Fatalf("terminal message = %T (%v)", msg, msg)
	}

	if string(client.gotInput) != "original" {
		t.Errorf("input image sent = %q", client.gotInput)
	}
	if client.gotMIME != "image/png" {
		t.Errorf("mime sent = %q", client.gotMIME)
	}
	if !strings.Contains(filepath.Base(done.Path), "image_edited_") {
		t.Errorf("artifact name = %q, want image_edited_ prefix", filepath.Base(done.Path))
	}
}

func TestRemoteErrorSurfaces(t *testing.T) {
	client := &fakeImager{err: errors.New("quota exceeded")}
	m, store := newTestModel(t, client)

	m = typeText(m, "p")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := resolve(t, cmd)
	m, _ = m.Update(msg)

	if !strings.Contains(m.View(), "quota exceeded") {
		t.Error("remote error not rendered")
	}
	if store.APICalls() != 0 {
		t.Errorf("failed call counted: APICalls() = %d", store.APICalls())
	}
}
