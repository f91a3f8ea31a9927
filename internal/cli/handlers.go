// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/genstudio-tui/internal/config"
	"github.com/jeranaias/genstudio-tui/internal/history"
	"github.com/jeranaias/genstudio-tui/internal/util"
)

// HandleSessions lists the sessions present in the artifact index.
func HandleSessions(cfg *config.Config) error {
	ix, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	sessions, err := ix.Sessions(context.Background())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no indexed sessions")
		return nil
	}
	for _, s := range sessions {
		arts, err := ix.List(context.Background(), history.ListOptions{Session: s, Limit: 1000})
		if err != nil {
			return err
		}
		fmt.Printf("%s  (%d artifacts)\n", s, len(arts))
	}
	return nil
}

// HandleHistory lists or searches indexed artifacts.
func HandleHistory(cfg *config.Config, query, kind string) error {
	ix, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	var artifacts []history.Artifact
	if query != "" {
		artifacts, err = ix.Search(context.Background(), query, 50)
	} else {
		artifacts, err = ix.List(context.Background(), history.ListOptions{Kind: kind, Limit: 50})
	}
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		fmt.Println("no matching artifacts")
		return nil
	}

	for _, a := range artifacts {
		prompt := util.TruncateString(a.Prompt, 60)
		fmt.Printf("%-6s %s  %s  %s\n",
			a.Kind,
			a.CreatedAt.Format(time.DateTime),
			a.Filename,
			strings.ReplaceAll(prompt, "\n", " "))
	}
	return nil
}

// HandleConfig prints the resolved configuration with the key redacted.
func HandleConfig(cfg *config.Config) {
	key := "(not set)"
	if cfg.API.Key != "" {
		key = "(set)"
	}
	fmt.Printf("gateway:      %s\n", cfg.API.BaseURL)
	fmt.Printf("api key:      %s\n", key)
	fmt.Printf("chat model:   %s\n", cfg.Chat.Model)
	fmt.Printf("image model:  %s\n", cfg.Image.Model)
	fmt.Printf("video model:  %s  (%s, %s)\n", cfg.Video.Model, cfg.Video.AspectRatio, cfg.Video.Resolution)
	fmt.Printf("speech model: %s  (voice %s)\n", cfg.Speech.Model, cfg.Speech.Voice)
	fmt.Printf("data dir:     %s\n", cfg.Storage.DataDir)
}

func openIndex(cfg *config.Config) (*history.Index, error) {
	path, err := cfg.HistoryDBPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}
