// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the API key entry and validation view.
//
// The rest of the application is locked until a key validates against
// the gateway, so this view is also the credential gate shown at
// startup when no key is configured.
package settings

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/genstudio-tui/internal/config"
	"github.com/jeranaias/genstudio-tui/internal/ui/components"
	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

// Validator is the credential surface this view drives. Satisfied by
// *gemini.Client.
type Validator interface {
	SetAPIKey(apiKey string)
	ValidateKey(ctx context.Context) error
	KeyFingerprint() string
}

// =============================================================================
// MESSAGES
// =============================================================================

// ValidatedMsg reports a successful key validation. The app reacts by
// unlocking the generation tabs and opening the session.
type ValidatedMsg struct {
	Key string
}

// ValidationErrorMsg reports a rejected key.
type ValidationErrorMsg struct {
	Err error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the settings view.
type Model struct {
	theme *styles.Theme
	width int

	client Validator
	cfg    *config.Config

	key     textinput.Model
	spinner components.Spinner

	validating bool
	validated  bool
	lastError  error
}

// New creates the settings view. If the config already carries a key it
// is pre-filled for validation.
func New(theme *styles.Theme, client Validator, cfg *config.Config) Model {
	key := textinput.New()
	key.Placeholder = "API key"
	key.EchoMode = textinput.EchoPassword
	key.CharLimit = 256
	key.Focus()
	if cfg.API.Key != "" {
		key.SetValue(cfg.API.Key)
	}

	return Model{
		theme:   theme,
		client:  client,
		cfg:     cfg,
		key:     key,
		spinner: components.NewSpinner(theme),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// SetSize resizes the view.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.key.Width = width - 20
}

// Focus gives keyboard focus to the view.
func (m *Model) Focus() tea.Cmd { return m.key.Focus() }

// Blur removes keyboard focus.
func (m *Model) Blur() { m.key.Blur() }

// Validated reports whether a key has been accepted.
func (m Model) Validated() bool { return m.validated }

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
		}

	case ValidatedMsg:
		m.validating = false
		m.validated = true
		m.spinner.Stop()
		m.lastError = nil

	case ValidationErrorMsg:
		m.validating = false
		m.validated = false
		m.spinner.Stop()
		m.lastError = msg.Err
	}

	if cmd := m.spinner.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.key, cmd = m.key.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) submit() tea.Cmd {
	if m.validating {
		return nil
	}
	key := strings.TrimSpace(m.key.Value())
	if key == "" {
		return nil
	}

	m.validating = true
	m.lastError = nil

	client := m.client
	tick := m.spinner.Start("validating key")
	return tea.Batch(tick, func() tea.Msg {
		client.SetAPIKey(key)
		if err := client.ValidateKey(context.Background()); err != nil {
			return ValidationErrorMsg{Err: err}
		}
		return ValidatedMsg{Key: key}
	})
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.FieldLabel.Render("Gateway") + m.theme.FieldValue.Render(m.cfg.API.BaseURL))
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldLabel.Render("Chat model") + m.theme.FieldValue.Render(m.cfg.Chat.Model))
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldLabel.Render("Image model") + m.theme.FieldValue.Render(m.cfg.Image.Model))
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldLabel.Render("Video model") + m.theme.FieldValue.Render(m.cfg.Video.Model))
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldLabel.Render("Speech model") + m.theme.FieldValue.Render(m.cfg.Speech.Model))
	b.WriteByte('\n')
	b.WriteByte('\n')

	b.WriteString(m.theme.FieldLabel.Render("API key") + m.key.View())
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldHint.Render("enter to validate"))
	b.WriteByte('\n')
	b.WriteByte('\n')

	if m.spinner.Active() {
		b.WriteString(m.spinner.View())
		b.WriteByte('\n')
	}
	if m.validated {
		b.WriteString(m.theme.Success("key accepted (" + m.client.KeyFingerprint() + ")"))
		b.WriteByte('\n')
	}
	if m.lastError != nil {
		b.WriteString(m.theme.Error(m.lastError.Error()))
		b.WriteByte('\n')
	}
	return b.String()
}
