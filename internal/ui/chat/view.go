// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/genstudio-tui/internal/model"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	if m.spinner.Active() {
		b.WriteString(m.spinner.View())
		b.WriteByte('\n')
	}
	if m.state == StateError && m.lastError != nil {
		b.WriteString(m.theme.Error(m.lastError.Error()))
		b.WriteByte('\n')
	}

	b.WriteString(m.theme.InputContainer.Width(m.width).Render(
		m.theme.InputPrompt.Render("> ") + m.input.View()))
	return b.String()
}

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	if m.conversation == nil {
		return
	}

	width := m.viewport.Width - 8
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	for _, msg := range m.conversation.Messages {
		switch msg.Role {
		case model.RoleUser:
			b.WriteString(m.theme.UserBubble.Width(width).Render(msg.Content))
		case model.RoleAssistant:
			b.WriteString(m.theme.AssistantBubble.Width(width).Render(renderMarkdown(msg.Content, width)))
		default:
			continue // system seed is not shown
		}
		b.WriteByte('\n')
	}
	m.viewport.SetContent(b.String())
}

// renderMarkdown renders assistant markdown for the terminal, falling
// back to the raw text if rendering fails.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}
