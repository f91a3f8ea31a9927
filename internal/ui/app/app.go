// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model: a tabbed container for the
// settings, chat, image, video, and speech views.
//
// The generation tabs stay locked until the API key validates. On
// validation the app opens the session directory and constructs the
// views that need it.
package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/config"
	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/history"
	"github.com/jeranaias/genstudio-tui/internal/model"
	"github.com/jeranaias/genstudio-tui/internal/session"
	"github.com/jeranaias/genstudio-tui/internal/tasks"
	"github.com/jeranaias/genstudio-tui/internal/ui/chat"
	"github.com/jeranaias/genstudio-tui/internal/ui/components"
	"github.com/jeranaias/genstudio-tui/internal/ui/imagegen"
	"github.com/jeranaias/genstudio-tui/internal/ui/settings"
	"github.com/jeranaias/genstudio-tui/internal/ui/speech"
	"github.com/jeranaias/genstudio-tui/internal/ui/styles"
	"github.com/jeranaias/genstudio-tui/internal/ui/videogen"
)

// =============================================================================
// TABS
// =============================================================================

// Tab identifies one of the top-level views.
type Tab int

const (
	TabSettings Tab = iota
	TabChat
	TabImage
	TabVideo
	TabSpeech
)

var tabNames = []string{"Settings", "Chat", "Image", "Video", "Speech"}

// String returns the tab's display name.
func (t Tab) String() string { return tabNames[t] }

// =============================================================================
// APP MODEL
// =============================================================================

// App is the root model.
type App struct {
	theme  *styles.Theme
	cfg    *config.Config
	client *gemini.Client
	index  *history.Index // optional
	logger zerolog.Logger

	// send pushes async messages into the running program. Set via
	// SetSend once the tea.Program exists.
	send func(tea.Msg)

	active   Tab
	unlocked bool

	store  *session.Store
	runner *tasks.Runner

	settings settings.Model
	chat     chat.Model
	image    imagegen.Model
	video    videogen.Model
	speech   speech.Model

	statusBar components.StatusBar

	width  int
	height int
	err    error
}

// New creates the root model. The generation views are constructed on
// key validation, when a session exists for them to write into.
func New(cfg *config.Config, client *gemini.Client, index *history.Index, logger zerolog.Logger) *App {
	theme := styles.NewTheme()

	return &App{
		theme:     theme,
		cfg:       cfg,
		client:    client,
		index:     index,
		logger:    logger,
		send:      func(tea.Msg) {},
		settings:  settings.New(theme, client, cfg),
		statusBar: components.NewStatusBar(theme),
	}
}

// SetSend wires the program's Send function for async job events.
func (a *App) SetSend(send func(tea.Msg)) {
	a.send = send
}

// Store exposes the open session store, nil before validation.
func (a *App) Store() *session.Store { return a.store }

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.settings.Init()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if a.runner != nil {
				a.runner.Cancel()
			}
			return a, tea.Quit
		case "tab":
			a.switchTab(1)
			return a, a.focusActive()
		case "shift+tab":
			a.switchTab(-1)
			return a, a.focusActive()
		case "ctrl+g":
			if a.active != TabSettings {
				a.blurActive()
				a.active = TabSettings
				return a, a.focusActive()
			}
		}
		// Other keys go to the active tab only.
		return a, a.route(msg, true)

	case settings.ValidatedMsg:
		cmd := a.unlock(msg.Key)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, a.route(msg, false))
	return a, tea.Batch(cmds...)
}

// route dispatches a message to tabs. Key messages go only to the
// active tab; everything else is broadcast, since async results can
// arrive while another tab is focused.
func (a *App) route(msg tea.Msg, keyOnly bool) tea.Cmd {
	var cmds []tea.Cmd
	update := func(tab Tab) {
		var cmd tea.Cmd
		switch tab {
		case TabSettings:
			a.settings, cmd = a.settings.Update(msg)
		case TabChat:
			a.chat, cmd = a.chat.Update(msg)
		case TabImage:
			a.image, cmd = a.image.Update(msg)
		case TabVideo:
			a.video, cmd = a.video.Update(msg)
		case TabSpeech:
			a.speech, cmd = a.speech.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	if keyOnly {
		if a.active == TabSettings || a.unlocked {
			update(a.active)
		}
		return tea.Batch(cmds...)
	}

	update(TabSettings)
	if a.unlocked {
		for _, tab := range []Tab{TabChat, TabImage, TabVideo, TabSpeech} {
			update(tab)
		}
	}
	return tea.Batch(cmds...)
}

// unlock opens the session and constructs the generation views.
func (a *App) unlock(key string) tea.Cmd {
	if a.unlocked {
		return nil
	}

	store, err := session.NewStore(a.cfg.Storage.DataDir, a.logger)
	if err != nil {
		a.err = err
		return nil
	}
	a.store = store
	a.runner = tasks.NewRunner(a.client, store, a.index, a.logger)

	conv := model.NewConversationWithSystem(a.cfg.Chat.Model, a.cfg.Chat.SystemPrompt)
	a.chat = chat.New(a.theme, a.client, store, conv)
	a.image = imagegen.New(a.theme, a.client, store, a.index)
	a.video = videogen.New(a.theme, a.runner, a.cfg.Video.NegativePrompt, func(msg tea.Msg) {
		a.send(msg)
	})
	a.speech = speech.New(a.theme, a.client, store, a.index)
	a.unlocked = true
	a.resize()

	// Persist the accepted key for the next run.
	a.cfg.API.Key = key
	if err := a.cfg.Save(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to persist config")
	}

	a.logger.Info().Str("session", store.ID).Msg("key validated, session open")
	a.active = TabChat
	return tea.Batch(a.chat.Init(), a.image.Init(), a.video.Init(), a.speech.Init(), a.focusActive())
}

// switchTab cycles the generation tabs. Settings sits outside the
// cycle and is reached with ctrl+g.
func (a *App) switchTab(dir int) {
	if !a.unlocked {
		return
	}
	a.blurActive()
	if a.active == TabSettings {
		a.active = TabChat
		return
	}
	n := len(tabNames) - 1 // generation tabs only
	idx := int(a.active) - int(TabChat)
	a.active = TabChat + Tab((idx+dir+n)%n)
}

func (a *App) blurActive() {
	switch a.active {
	case TabSettings:
		a.settings.Blur()
	case TabChat:
		a.chat.Blur()
	case TabImage:
		a.image.Blur()
	case TabVideo:
		a.video.Blur()
	case TabSpeech:
		a.speech.Blur()
	}
}

func (a *App) focusActive() tea.Cmd {
	switch a.active {
	case TabSettings:
		return a.settings.Focus()
	case TabChat:
		return a.chat.Focus()
	case TabImage:
		return a.image.Focus()
	case TabVideo:
		return a.video.Focus()
	case TabSpeech:
		return a.speech.Focus()
	}
	return nil
}

func (a *App) resize() {
	contentHeight := a.height - 4 // tab bar and status bar
	if contentHeight < 5 {
		contentHeight = 5
	}
	a.settings.SetSize(a.width, contentHeight)
	if a.unlocked {
		a.chat.SetSize(a.width, contentHeight)
		a.image.SetSize(a.width, contentHeight)
		a.video.SetSize(a.width, contentHeight)
		a.speech.SetSize(a.width, contentHeight)
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	// Tab bar.
	var tabs []string
	for i, name := range tabNames {
		style := a.theme.Tab
		if Tab(i) == a.active {
			style = a.theme.TabActive
		}
		tabs = append(tabs, style.Render(name))
	}
	b.WriteString(a.theme.TabBar.Width(a.width).Render(strings.Join(tabs, " ")))
	b.WriteByte('\n')

	// Active view.
	switch {
	case a.err != nil:
		b.WriteString(a.theme.Error(a.err.Error()))
	case a.active == TabSettings:
		b.WriteString(a.settings.View())
	case !a.unlocked:
		b.WriteString(a.theme.FieldHint.Render("Validate an API key in Settings to begin."))
	case a.active == TabChat:
		b.WriteString(a.chat.View())
	case a.active == TabImage:
		b.WriteString(a.image.View())
	case a.active == TabVideo:
		b.WriteString(a.video.View())
	case a.active == TabSpeech:
		b.WriteString(a.speech.View())
	}
	b.WriteByte('\n')

	// Status bar.
	bar := a.statusBar
	bar.Width = a.width
	bar.Model = a.cfg.Chat.Model
	if a.store != nil {
		bar.SessionID = a.store.ID
		bar.APICalls = a.store.APICalls()
	}
	if a.working() {
		bar.Status = components.StatusWorking
	}
	b.WriteString(bar.Render())

	return a.theme.App.Render(b.String())
}

// working reports whether any tab has a request in flight.
func (a *App) working() bool {
	if !a.unlocked {
		return false
	}
	return a.chat.Waiting() || a.image.Working() || a.video.Working() || a.speech.Working()
}
