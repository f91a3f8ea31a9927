// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/config"
	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/ui/settings"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	// Keep config writes inside the test sandbox.
	t.Setenv("HOME", t.TempDir())

	client := gemini.NewClient("sk-test")
	a := New(cfg, client, nil, zerolog.Nop())
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return a
}

func TestStartsLockedOnSettings(t *testing.T) {
	a := newTestApp(t)

	if a.active != TabSettings {
		t.Errorf("initial tab = %v, want Settings", a.active)
	}
	if a.Store() != nil {
		t.Error("session open before validation")
	}

	// Tab switching is disabled while locked.
	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	if a.active != TabSettings {
		t.Error("tab switched while locked")
	}
}

func TestValidationUnlocksAndOpensSession(t *testing.T) {
	a := newTestApp(t)

	a.Update(settings.ValidatedMsg{Key: "sk-test"})

	if !a.unlocked {
		t.Fatal("app still locked after validation")
	}
	if a.Store() == nil {
		t.Fatal("no session after validation")
	}
	if a.active != TabChat {
		t.Errorf("active tab = %v, want Chat after unlock", a.active)
	}
	if !strings.HasPrefix(a.Store().ID, "session_") {
		t.Errorf("session ID = %q", a.Store().ID)
	}
}

func TestTabSwitchingAfterUnlock(t *testing.T) {
	a := newTestApp(t)
	a.Update(settings.ValidatedMsg{Key: "sk-test"})

	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	if a.active != TabImage {
		t.Errorf("tab after one switch = %v, want Image", a.active)
	}

	a.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if a.active != TabChat {
		t.Errorf("tab after shift+tab = %v, want Chat", a.active)
	}

	// Wraps around the four generation tabs without passing Settings.
	for i := 0; i < 4; i++ {
		a.Update(tea.KeyMsg{Type: tea.KeyTab})
		if a.active == TabSettings {
			t.Fatal("cycle entered Settings")
		}
	}
	if a.active != TabChat {
		t.Errorf("tab did not wrap: %v", a.active)
	}

	// Reverse wrap from the first generation tab.
	a.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if a.active != TabSpeech {
		t.Errorf("tab after reverse wrap = %v, want Speech", a.active)
	}
}

func TestSettingsReachableAndCycleResumes(t *testing.T) {
	a := newTestApp(t)
	a.Update(settings.ValidatedMsg{Key: "sk-test"})

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	if a.active != TabSettings {
		t.Fatalf("tab after ctrl+g = %v, want Settings", a.active)
	}

	// Leaving Settings with tab returns to the start of the cycle.
	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	if a.active != TabChat {
		t.Errorf("tab after leaving Settings = %v, want Chat", a.active)
	}
}

func TestViewShowsTabBarAndStatus(t *testing.T) {
	a := newTestApp(t)
	a.Update(settings.ValidatedMsg{Key: "sk-test"})

	view := a.View()
	for _, want := range []string{"Settings", "Chat", "Image", "Video", "Speech", "session_"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLockedTabsShowHint(t *testing.T) {
	a := newTestApp(t)
	a.active = TabVideo // forced; switching is blocked while locked

	if !strings.Contains(a.View(), "Validate an API key") {
		t.Error("locked view missing validation hint")
	}
}
