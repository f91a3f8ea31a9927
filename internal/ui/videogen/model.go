// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package videogen provides the video generation view.
//
// Video generation runs as a background job: submission returns an
// operation handle, the runner polls it until the clip resolves, then
// downloads into the session directory. Job state arrives as EventMsg
// values pushed through the program's send function, so the view stays
// responsive while a job runs.
package videogen

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/genstudio-tui/internal/config"
	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/tasks"
	"github.com/jeranaias/genstudio-tui/internal/ui/components"
	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
)

// EventMsg wraps a job event for the Bubble Tea loop.
type EventMsg struct {
	Event tasks.Event
}

// focus identifies the focused form field.
type focus int

const (
	focusPrompt focus = iota
	focusRefPath
	focusNegative
)

// Model is the Bubble Tea model for the video view.
type Model struct {
	theme *styles.Theme
	width int

	runner *tasks.Runner
	send   func(tea.Msg)

	focused    focus
	prompt     textinput.Model
	refPath    textinput.Model
	negative   textinput.Model
	aspect     int // index into config.AspectRatios
	resolution int // index into config.Resolutions

	job       *tasks.Job
	status    tasks.Status
	progress  components.ProgressBar
	detail    string
	output    string
	lastError error
}

// New creates the video view. send delivers job events into the
// running program (tea.Program.Send).
func New(theme *styles.Theme, runner *tasks.Runner, defaultNegative string, send func(tea.Msg)) Model {
	prompt := textinput.New()
	prompt.Placeholder = "Describe the video..."
	prompt.CharLimit = 2000
	prompt.Focus()

	refPath := textinput.New()
	refPath.Placeholder = "Reference image path (optional)"
	refPath.CharLimit = 512

	negative := textinput.New()
	negative.Placeholder = "Negative prompt (optional)"
	negative.CharLimit = 500
	negative.SetValue(defaultNegative)

	return Model{
		theme:    theme,
		runner:   runner,
		send:     send,
		prompt:   prompt,
		refPath:  refPath,
		negative: negative,
		progress: components.NewProgressBar(theme),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// SetSize resizes the view.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.prompt.Width = width - 20
	m.refPath.Width = width - 20
	m.negative.Width = width - 20
}

// Focus gives keyboard focus to the view.
func (m *Model) Focus() tea.Cmd { return m.prompt.Focus() }

// Blur removes keyboard focus.
func (m *Model) Blur() {
	m.prompt.Blur()
	m.refPath.Blur()
	m.negative.Blur()
}

// AspectRatio returns the selected aspect ratio.
func (m Model) AspectRatio() string { return config.AspectRatios[m.aspect] }

// Resolution returns the selected resolution.
func (m Model) Resolution() string { return config.Resolutions[m.resolution] }

// Working reports whether a job is in flight.
func (m Model) Working() bool {
	return m.job != nil && !m.status.Terminal()
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
			m.submit()
		case "ctrl+a":
			m.aspect = (m.aspect + 1) % len(config.AspectRatios)
		case "ctrl+r":
			m.resolution = (m.resolution + 1) % len(config.Resolutions)
		case "ctrl+x":
			if m.Working() {
				m.runner.Cancel()
			}
		case "up":
			m.cycleFocus(-1)
		case "down":
			m.cycleFocus(1)
		}

	case EventMsg:
		m.apply(msg.Event)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	cmds = append(cmds, cmd)
	m.refPath, cmd = m.refPath.Update(msg)
	cmds = append(cmds, cmd)
	m.negative, cmd = m.negative.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// apply folds a job event into the view state.
func (m *Model) apply(e tasks.Event) {
	if m.job == nil || e.JobID != m.job.ID {
		return // stale event from a finished job
	}
	m.status = e.Status
	m.detail = e.Detail
	m.progress.Percent = e.Progress
	switch e.Status {
	case tasks.StatusComplete:
		m.output = e.OutputPath
		m.lastError = nil
	case tasks.StatusFailed:
		m.lastError = e.Err
	case tasks.StatusCanceled:
		m.lastError = errors.New("job canceled")
	}
}

func (m *Model) cycleFocus(dir int) {
	fields := []*textinput.Model{&m.prompt, &m.refPath, &m.negative}
	fields[m.focused].Blur()
	m.focused = focus((int(m.focused) + dir + len(fields)) % len(fields))
	fields[m.focused].Focus()
}

func (m *Model) submit() {
	if m.Working() {
		m.lastError = tasks.ErrJobInFlight
		return
	}
	prompt := strings.TrimSpace(m.prompt.Value())
	if prompt == "" {
		return
	}

	req := gemini.VideoRequest{
		Prompt:         prompt,
		AspectRatio:    m.AspectRatio(),
		Resolution:     m.Resolution(),
		NegativePrompt: strings.TrimSpace(m.negative.Value()),
	}

	if refPath := strings.TrimSpace(m.refPath.Value()); refPath != "" {
		data, err := os.ReadFile(refPath)
		if err != nil {
			m.lastError = err
			return
		}
		req.Image = data
		req.MIMEType = gemini.ImageMIMEType(refPath)
	}

	send := m.send
	job, err := m.runner.Generate(context.Background(), req, func(e tasks.Event) {
		send(EventMsg{Event: e})
	})
	if err != nil {
		m.lastError = err
		return
	}

	m.job = job
	m.status = tasks.StatusSubmitting
	m.progress.Percent = 0
	m.detail = ""
	m.output = ""
	m.lastError = nil
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.FieldLabel.Render("Aspect ratio") + m.theme.FieldValue.Render(m.AspectRatio()) +
		"  " + m.theme.FieldHint.Render("ctrl+a to cycle"))
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldLabel.Render("Resolution") + m.theme.FieldValue.Render(m.Resolution()) +
		"  " + m.theme.FieldHint.Render("ctrl+r to cycle"))
	b.WriteByte('\n')
	b.WriteByte('\n')

	b.WriteString(m.theme.FieldLabel.Render("Prompt") + m.prompt.View())
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldLabel.Render("Reference") + m.refPath.View())
	b.WriteByte('\n')
	b.WriteString(m.theme.FieldLabel.Render("Negative") + m.negative.View())
	b.WriteByte('\n')
	b.WriteByte('\n')

	if m.Working() {
		bar := m.progress
		bar.Label = m.status.String()
		b.WriteString(bar.Render())
		b.WriteByte('\n')
		if m.detail != "" {
			b.WriteString(m.theme.ProgressDetail.Render(m.detail))
			b.WriteByte('\n')
		}
		b.WriteString(m.theme.FieldHint.Render("ctrl+x to cancel"))
		b.WriteByte('\n')
	}
	if m.output != "" {
		b.WriteString(m.theme.Success("saved " + m.output))
		b.WriteByte('\n')
	}
	if m.lastError != nil {
		b.WriteString(m.theme.Error(m.lastError.Error()))
		b.WriteByte('\n')
	}
	return b.String()
}
