// genstudio TUI - a terminal studio for chat, image, video, and speech
// generation through an AI gateway.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/cli"
	"github.com/jeranaias/genstudio-tui/internal/config"
	"github.com/jeranaias/genstudio-tui/internal/gemini"
	"github.com/jeranaias/genstudio-tui/internal/history"
	"github.com/jeranaias/genstudio-tui/internal/logging"
	"github.com/jeranaias/genstudio-tui/internal/ui/app"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case cli.CmdTUI:
		runTUI(cfg)
	case cli.CmdSessions:
		if err := cli.HandleSessions(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdHistory:
		if err := cli.HandleHistory(cfg, args.Query, args.Kind); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdConfig:
		cli.HandleConfig(cfg)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

func runTUI(cfg *config.Config) {
	logger, closeLogs, err := logging.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLogs() }()

	client := buildClient(cfg, logger)

	// The artifact index is advisory; the studio runs without it.
	var index *history.Index
	if path, err := cfg.HistoryDBPath(); err == nil {
		if ix, err := history.Open(path); err == nil {
			index = ix
			defer ix.Close()
		} else {
			logger.Warn().Err(err).Msg("artifact index unavailable")
		}
	}

	root := app.New(cfg, client, index, logger)
	p := tea.NewProgram(
		root,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	root.SetSend(p.Send)

	if _, err := p.Run(); err != nil {
		logger.Error().Err(err).Msg("program exited with error")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildClient(cfg *config.Config, logger zerolog.Logger) *gemini.Client {
	client := gemini.NewClient(cfg.API.Key).
		WithBaseURL(cfg.API.BaseURL).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs)*time.Second).
		WithLogger(logger).
		WithModels(cfg.Chat.Model, cfg.Image.Model, cfg.Video.Model, cfg.Speech.Model).
		WithPollPolicy(
			time.Duration(cfg.Video.PollIntervalSecs)*time.Second,
			cfg.Video.MaxPollAttempts,
			cfg.Video.RetryBudget,
		)
	if cfg.API.RequestsPerSec > 0 {
		client = client.WithRateLimit(cfg.API.RequestsPerSec)
	}
	return client
}
