// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

// ProgressBar renders a fixed-width percentage bar for long-running
// jobs. Remote progress arrives in coarse steps, so there is no
// animation, just the last reported value.
type ProgressBar struct {
	Width   int
	Percent int
	Label   string

	theme *styles.Theme
}

// NewProgressBar creates a progress bar with the given theme.
func NewProgressBar(theme *styles.Theme) ProgressBar {
	return ProgressBar{Width: 40, theme: theme}
}

// Render draws the bar, e.g. "Polling [=====>     ]  42%".
func (p ProgressBar) Render() string {
	if p.theme == nil {
		p.theme = styles.NewTheme()
	}

	percent := p.Percent
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	inner := p.Width - 2
	if inner < 4 {
		inner = 4
	}
	filled := inner * percent / 100

	var bar strings.Builder
	bar.WriteByte('[')
	for i := 0; i < inner; i++ {
		switch {
		case i < filled-1 || (filled == inner && i < filled):
			bar.WriteByte('=')
		case i == filled-1:
			bar.WriteByte('>')
		default:
			bar.WriteByte(' ')
		}
	}
	bar.WriteByte(']')

	line := fmt.Sprintf("%s %3d%%", bar.String(), percent)
	if p.Label != "" {
		line = p.theme.ProgressLabel.Render(p.Label) + " " + line
	}
	return line
}
