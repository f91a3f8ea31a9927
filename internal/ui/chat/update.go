// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/genstudio-tui/internal/gemini"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ReplyMsg carries a completed assistant reply.
type ReplyMsg struct {
	Content string
}

// ErrorMsg carries a failed exchange.
type ErrorMsg struct {
	Err error
}

// =============================================================================
// COMMANDS
// =============================================================================

// sendCmd sends the conversation to the remote model and returns the
// reply as a message.
func sendCmd(client Chatter, messages []gemini.ChatMessage) tea.Cmd {
	return func() tea.Msg {
		reply, err := client.Chat(context.Background(), messages)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return ReplyMsg{Content: reply}
	}
}

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
		case "pgup":
			m.viewport.HalfViewUp()
		case "pgdown":
			m.viewport.HalfViewDown()
		}

	case ReplyMsg:
		m.state = StateReady
		m.spinner.Stop()
		m.lastError = nil
		m.conversation.AddAssistantMessage(msg.Content)
		if m.store != nil {
			_ = m.store.RecordAPICall()
		}
		m.persist()
		m.refreshViewport()
		m.viewport.GotoBottom()

	case ErrorMsg:
		m.state = StateError
		m.spinner.Stop()
		m.lastError = msg.Err
	}

	if cmd := m.spinner.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit sends the typed message if the view is ready for one.
func (m *Model) submit() tea.Cmd {
	if m.state == StateWaiting {
		return nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	m.conversation.AddUserMessage(text)
	m.persist()
	m.input.Reset()
	m.state = StateWaiting
	m.lastError = nil
	m.refreshViewport()
	m.viewport.GotoBottom()

	tick := m.spinner.Start("waiting for reply")
	return tea.Batch(tick, sendCmd(m.client, gemini.MessagesFromConversation(m.conversation)))
}

// persist rewrites the session transcript after each turn.
func (m *Model) persist() {
	if m.store == nil {
		return
	}
	_ = m.store.SaveTranscript(m.conversation)
}
