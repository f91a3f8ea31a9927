// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package imagegen provides the image generation and editing view.
package imagegen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/genstudio-tui/internal/config"
	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/history"
	"github.com/jeranaias/genstudio-tui/internal/session"
	"github.com/jeranaias/genstudio-tui/internal/ui/components"
	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

// Imager is the remote surface this view drives. Satisfied by
// *gemini.Client.
type Imager interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error)
	EditImage(ctx context.Context, prompt string, image []byte, mimeType, aspectRatio string) ([]byte, error)
}

// Mode selects between generating a new image and editing an existing one.
type Mode int

const (
	ModeGenerate Mode = iota
	ModeEdit
)

// String returns the mode's display name.
func (m Mode) String() string {
	if m == ModeEdit {
		return "Edit"
	}
	return "Generate"
}

// focus identifies the focused form field.
type focus int

const (
	focusPrompt focus = iota
	focusPath
)

// =============================================================================
// MESSAGES
// =============================================================================

// DoneMsg carries a saved image artifact path.
type DoneMsg struct {
	Path string
}

// ErrorMsg carries a failed generation or edit.
type ErrorMsg struct {
	Err error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the image view.
type Model struct {
	theme *styles.Theme
	width int

	client Imager
	store  *session.Store
	index  *history.Index // optional

	mode    Mode
	focused focus
	prompt  textinput.Model
	path    textinput.Model
	aspect  int // index into config.AspectRatios

	spinner    components.Spinner
	working    bool
	resultPath string
	lastError  error
}

// New creates the image view.
func New(theme *styles.Theme, client Imager, store *session.Store, index *history.Index) Model {
	prompt := textinput.New()
	prompt.Placeholder = "Describe the image..."
	prompt.CharLimit = 2000
	prompt.Focus()

	path := textinput.New()
	path.Placeholder = "Path to input image (edit mode)"
	path.CharLimit = 512

	return Model{
		theme:   theme,
		client:  client,
		store:   store,
		index:   index,
		prompt:  prompt,
		path:    path,
		spinner: components.NewSpinner(theme),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// SetSize resizes the view.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.prompt.Width = width - 20
	m.path.Width = width - 20
}

// Focus gives keyboard focus to the view.
func (m *Model) Focus() tea.Cmd { return m.prompt.Focus() }

// Blur removes keyboard focus.
func (m *Model) Blur() {
	m.prompt.Blur()
	m.path.Blur()
}

// AspectRatio returns the currently selected aspect ratio.
func (m Model) AspectRatio() string {
	return config.AspectRatios[m.aspect]
}

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
		case "enter":
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
		case "ctrl+t":
			if m.mode == ModeGenerate {
				m.mode = ModeEdit
			} else {
				m.mode = ModeGenerate
			}
		case "ctrl+a":
			m.aspect = (m.aspect + 1) % len(config.AspectRatios)
		case "up", "down":
			if m.mode == ModeEdit {
				m.toggleFocus()
			}
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
	m.prompt, cmd = m.prompt.Update(msg)
	cmds = append(cmds, cmd)
	m.path, cmd = m.path.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) toggleFocus() {
	if m.focused == focusPrompt {
		m.focused = focusPath
		m.prompt.Blur()
		m.path.Focus()
	} else {
		m.focused = focusPrompt
		m.path.Blur()
		m.prompt.Focus()
	}
}

func (m *Model) submit() tea.Cmd {
	if m.working {
		return nil
	}
	prompt := strings.TrimSpace(m.prompt.Value())
	if prompt == "" {
		return nil
	}

	mode := m.mode
	inputPath := strings.TrimSpace(m.path.Value())
	if mode == ModeEdit && inputPath == "" {
		m.lastError = errEditNeedsImage
		return nil
	}

	m.working = true
	m.lastError = nil
	m.resultPath = ""

	tick := m.spinner.Start(strings.ToLower(mode.String()) + " image")
	return tea.Batch(tick, m.runCmd(mode, prompt, inputPath, m.AspectRatio()))
}

var errEditNeedsImage = errors.New("edit mode needs an input image path")

// runCmd performs the remote call and saves the artifact.
func (m Model) runCmd(mode Mode, prompt, inputPath, aspect string) tea.Cmd {
	client, store, index := m.client, m.store, m.index
	return func() tea.Msg {
		ctx := context.Background()

		var (
			data []byte
			err  error
		)
		if mode == ModeEdit {
			var input []byte
			input, err = os.ReadFile(inputPath)
			if err != nil {
				return ErrorMsg{Err: err}
			}
			data, err = client.EditImage(ctx, prompt, input, gemini.ImageMIMEType(inputPath), aspect)
		} else {
			data, err = client.GenerateImage(ctx, prompt, aspect)
		}
		if err != nil {
			return ErrorMsg{Err: err}
		}
		_ = store.RecordAPICall()

		var path string
		if mode == ModeEdit {
			path, err = store.SaveEditedImage(data, prompt, inputPath)
		} else {
			path, err = store.SaveImage(data, prompt)
		}
		if err != nil {
			return ErrorMsg{Err: err}
		}

		if index != nil {
			_ = index.Record(ctx, history.Artifact{
				Kind:     history.KindImage,
				Session:  store.ID,
				Prompt:   prompt,
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

	b.WriteString(m.theme.FieldLabel.Render("Mode") + m.theme.FieldValue.Render(m.mode.String()) +
		"  " + m.theme.FieldHint.Render("ctrl+t to switch"))
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldLabel.Render("Aspect ratio") + m.theme.FieldValue.Render(m.AspectRatio()) +
		"  " + m.theme.FieldHint.Render("ctrl+a to cycle"))
	b.WriteByte('\n')
	b.WriteByte('\n')

	b.WriteString(m.theme.FieldLabel.Render("Prompt") + m.prompt.View())
	b.WriteByte('\n')
	if m.mode == ModeEdit {
		b.WriteString(m.theme.FieldLabel.Render("Input image") + m.path.View())
		b.WriteByte('\n')
	}
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
