// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the genstudio TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current application status.
type Status int

const (
	StatusReady Status = iota
	StatusWorking
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusWorking:
		return "Working..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a shape indicator for the status, distinguishable
// without color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusWorking:
		return styles.StatusIndicators.Pending
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// StatusBar is the bottom status bar: session identity on the left,
// call counter and status on the right.
type StatusBar struct {
	SessionID string
	Model     string
	APICalls  int
	Status    Status
	Message   string // transient message, shown instead of shortcuts
	Width     int

	theme *styles.Theme
}

// NewStatusBar creates a status bar with the given theme.
func NewStatusBar(theme *styles.Theme) StatusBar {
	return StatusBar{theme: theme, Status: StatusReady}
}

// shortcuts shown when no transient message is active.
var shortcuts = []struct{ key, desc string }{
	{"tab", "switch"},
	{"ctrl+g", "settings"},
	{"ctrl+c", "quit"},
}

// Render draws the status bar at the configured width.
func (b StatusBar) Render() string {
	if b.theme == nil {
		b.theme = styles.NewTheme()
	}

	left := fmt.Sprintf("%s %s", b.Status.Icon(), b.Status.String())
	if b.SessionID != "" {
		left += " | " + b.SessionID
	}
	if b.Model != "" {
		left += " | " + b.Model
	}

	var right string
	if b.Message != "" {
		right = b.Message
	} else {
		var parts []string
		for _, s := range shortcuts {
			parts = append(parts,
				b.theme.ShortcutKey.Render(s.key)+" "+b.theme.ShortcutDesc.Render(s.desc))
		}
		right = strings.Join(parts, "  ")
	}
	right = fmt.Sprintf("calls: %d  %s", b.APICalls, right)

	// Truncate by display width, not byte length.
	avail := b.Width - lipgloss.Width(right) - 3
	if avail > 0 && runewidth.StringWidth(left) > avail {
		left = runewidth.Truncate(left, avail, "...")
	}

	gap := b.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return b.theme.StatusBar.Width(b.Width).Render(line)
}
