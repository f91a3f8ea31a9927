// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/genstudio-tui/internal/model"
	"github.com/jeranaias/genstudio-tui/internal/util"
)

const transcriptFile = "chat_history.json"

// SaveTranscript rewrites the session's full chat transcript. Called
// after every completed exchange so a crash never loses more than the
// in-flight turn.
func (s *Store) SaveTranscript(conv *model.Conversation) error {
	if err := s.ready(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if err := util.AtomicWriteFile(filepath.Join(s.BaseDir, transcriptFile), data, 0644); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// LoadTranscript reads the session's transcript, or returns nil if no
// transcript has been written yet.
func (s *Store) LoadTranscript() (*model.Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.BaseDir, transcriptFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	return &conv, nil
}
