// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/model"
	"github.com/jeranaias/genstudio-tui/internal/session"
	"github.com/jeranaias/genstudio-tui/internal/ui/components"
	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

// Chatter is the remote surface the chat view drives. Satisfied by
// *gemini.Client.
type Chatter interface {
	Chat(ctx context.Context, messages []gemini.ChatMessage) (string, error)
}

// State represents the current state of the chat view.
type State int

const (
	StateReady   State = iota // Ready for input
	StateWaiting              // Waiting for the assistant reply
	StateError                // Showing an error
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State

	theme  *styles.Theme
	width  int
	height int

	conversation *model.Conversation
	client       Chatter
	store        *session.Store

	viewport viewport.Model
	input    textinput.Model
	spinner  components.Spinner

	lastError error
}

// New creates the chat view bound to a conversation and its session.
func New(theme *styles.Theme, client Chatter, store *session.Store, conv *model.Conversation) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 4000
	input.Focus()

	return Model{
		theme:        theme,
		client:       client,
		store:        store,
		conversation: conv,
		viewport:     viewport.New(80, 20),
		input:        input,
		spinner:      components.NewSpinner(theme),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Conversation exposes the backing conversation for transcript saves.
func (m Model) Conversation() *model.Conversation {
	return m.conversation
}

// SetSize resizes the view's components.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	// Input row, border, and spinner line live below the viewport.
	m.viewport.Height = height - 4
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
	m.input.Width = width - 4
	m.refreshViewport()
}

// Focus gives keyboard focus to the input field.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Blur removes keyboard focus.
func (m *Model) Blur() {
	m.input.Blur()
}

// Waiting reports whether a reply is in flight.
func (m Model) Waiting() bool {
	return m.state == StateWaiting
}
