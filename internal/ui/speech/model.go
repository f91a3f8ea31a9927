// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package speech provides the text-to-speech view.
package speech

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/genstudio-tui/internal/config"
	"github.com/jeranaias/genstudio-tui/internal/history"
	"github.com/jeranaias/genstudio-tui/internal/session"
	"github.com/jeranaias/genstudio-tui/internal/ui/components"
	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

// Speaker is the remote surface this view drives. Satisfied by
// *gemini.Client.
type Speaker interface {
	Speak(ctx context.Context, text, voice string) ([]byte, error)
}

// =============================================================================
// MESSAGES
// =============================================================================

// DoneMsg carries a saved audio artifact path.
type DoneMsg struct {
	Path string
}

// ErrorMsg carries a failed synthesis.
type ErrorMsg struct {
	Err error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the speech view.
type Model struct {
	theme *styles.Theme
	width int

	client Speaker
	store  *session.Store
	index  *history.Index // optional

	text  textarea.Model
	voice int // index into config.Voices

	spinner    components.Spinner
	working    bool
	resultPath string
	lastError  error
}

// New creates the speech view.
func New(theme *styles.Theme, client Speaker, store *session.Store, index *history.Index) Model {
	text := textarea.New()
	text.Placeholder = "Text to synthesize..."
	text.CharLimit = 5000
	text.SetHeight(6)
	text.Focus()

	return Model{
		theme:   theme,
		client:  client,
		store:   store,
		index:   index,
		text:    text,
		spinner: components.NewSpinner(theme),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textarea.Blink }

// SetSize resizes the view.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.text.SetWidth(width - 4)
}

// Focus gives keyboard focus to the view.
func (m *Model) Focus() tea.Cmd { return m.text.Focus() }

// Blur removes keyboard focus.
func (m *Model) Blur() { m.text.Blur() }

// Voice returns the selected voice name.
func (m Model) Voice() string { return config.Voices[m.voice] }

// Working reports whether a request is in flight.
func (m Model) Working() bool { return m.working }

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
		case "ctrl+v":
			m.voice = (m.voice + 1) % len(config.Voices)
		}

	case DoneMsg:
		m.working = false
		m.spinner.Stop()
		m.lastError = nil
		m.resultPath = msg.Path

	case ErrorMsg:
		m.working = false
		m.spinner.Stop()
		m.lastError = msg.Err
	}

	if cmd := m.spinner.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.text, cmd = m.text.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) submit() tea.Cmd {
	if m.working {
		return nil
	}
	text := strings.TrimSpace(m.text.Value())
	if text == "" {
		return nil
	}

	m.working = true
	m.lastError = nil
	m.resultPath = ""

	tick := m.spinner.Start("synthesizing")
	return tea.Batch(tick, speakCmd(m.client, m.store, m.index, text, m.Voice()))
}

// speakCmd performs the remote call and saves the artifact.
func speakCmd(client Speaker, store *session.Store, index *history.Index, text, voice string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		data, err := client.Speak(ctx, text, voice)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		_ = store.RecordAPICall()

		path, err := store.SaveAudio(data, text, voice)
		if err != nil {
			return ErrorMsg{Err: err}
		}

		if index != nil {
			_ = index.Record(ctx, history.Artifact{
				Kind:     history.KindAudio,
				Session:  store.ID,
				Prompt:   text,
				Filename: filepath.Base(path),
				FileSize: int64(len(data)),
			})
		}
		return DoneMsg{Path: path}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.FieldLabel.Render("Voice") + m.theme.FieldValue.Render(m.Voice()) +
		"  " + m.theme.FieldHint.Render("ctrl+v to cycle"))
	b.WriteByte('\n')
	b.WriteByte('\n')

	b.WriteString(m.text.View())
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldHint.Render("ctrl+s to synthesize"))
	b.WriteByte('\n')
	b.WriteByte('\n')

	if m.spinner.Active() {
		b.WriteString(m.spinner.View())
		b.WriteByte('\n')
	}
	if m.resultPath != "" {
		b.WriteString(m.theme.Success("saved " + m.resultPath))
		b.WriteByte('\n')
	}
	if m.lastError != nil {
		b.WriteString(m.theme.Error(m.lastError.Error()))
		b.WriteByte('\n')
	}
	return b.String()
}
