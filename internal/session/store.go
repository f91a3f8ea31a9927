// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/util"
)

// Fixed subdirectory names for each artifact kind.
const (
	imagesDir = "images"
	videosDir = "videos"
	audioDir  = "audio"
)

// ErrNoSession is returned when an artifact operation runs without an
// open session directory. Callers must fail fast rather than write
// elsewhere.
var ErrNoSession = errors.New("no session directory is open")

// Info is the persisted session_info.json record.
type Info struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	APICalls  int       `json:"api_calls"`
}

// Store is one session's working directory. Safe for use from the UI
// goroutine and the video worker concurrently.
type Store struct {
	ID        string
	BaseDir   string
	CreatedAt time.Time

	mu       sync.Mutex
	apiCalls int
	logger   zerolog.Logger
}

// NewStore allocates a timestamped session directory under dataDir with
// the fixed artifact subdirectories, writes the initial metadata record,
// and opens the session log.
func NewStore(dataDir string, logger zerolog.Logger) (*Store, error) {
	now := time.Now()
	id := "session_" + now.Format("20060102_150405")
	baseDir := filepath.Join(dataDir, id)

	for _, dir := range []string{baseDir,
		filepath.Join(baseDir, imagesDir),
		filepath.Join(baseDir, videosDir),
		filepath.Join(baseDir, audioDir),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	s := &Store{
		ID:        id,
		BaseDir:   baseDir,
		CreatedAt: now,
		logger:    logger,
	}

	if err := s.writeInfo(); err != nil {
		return nil, err
	}
	if err := s.Log("session created"); err != nil {
		return nil, err
	}

	logger.Info().Str("session", id).Str("dir", baseDir).Msg("session opened")
	return s, nil
}

// Open re-attaches to an existing session directory, restoring the
// api_calls counter from session_info.json.
func Open(baseDir string, logger zerolog.Logger) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, "session_info.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read session info: %w", err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse session info: %w", err)
	}

	return &Store{
		ID:        info.SessionID,
		BaseDir:   baseDir,
		CreatedAt: info.CreatedAt,
		apiCalls:  info.APICalls,
		logger:    logger,
	}, nil
}

// ready verifies the session directory still exists before any write.
func (s *Store) ready() error {
	if s == nil || s.BaseDir == "" {
		return ErrNoSession
	}
	if info, err := os.Stat(s.BaseDir); err != nil || !info.IsDir() {
		return ErrNoSession
	}
	return nil
}

// ImagesDir returns the image artifact directory.
func (s *Store) ImagesDir() string { return filepath.Join(s.BaseDir, imagesDir) }

// VideosDir returns the video artifact directory.
func (s *Store) VideosDir() string { return filepath.Join(s.BaseDir, videosDir) }

// AudioDir returns the audio artifact directory.
func (s *Store) AudioDir() string { return filepath.Join(s.BaseDir, audioDir) }

// Log appends one timestamped line to the session's append-only log.
func (s *Store) Log(message string) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.BaseDir, "session.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	line := time.Now().Format(time.RFC3339) + " - " + message + "\n"
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append session log: %w", err)
	}
	return nil
}

// RecordAPICall increments the api_calls counter and rewrites the
// session metadata record.
func (s *Store) RecordAPICall() error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	s.apiCalls++
	s.mu.Unlock()

	return s.writeInfo()
}

// APICalls returns the number of successful remote calls this session.
func (s *Store) APICalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiCalls
}

// writeInfo rewrites session_info.json atomically.
func (s *Store) writeInfo() error {
	s.mu.Lock()
	info := Info{SessionID: s.ID, CreatedAt: s.CreatedAt, APICalls: s.apiCalls}
	s.mu.Unlock()

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(filepath.Join(s.BaseDir, "session_info.json"), data, 0644)
}

// timestamp formats a time for artifact filenames.
func timestamp() string {
	return time.Now().Format("20060102_150405")
}

// uniquePath returns dir/<prefix>_<ts><ext>, adding a numeric suffix if
// two artifacts land within the same second.
func uniquePath(dir, prefix, ext string) (string, string) {
	base := prefix + "_" + timestamp()
	name := base + ext
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			return filepath.Join(dir, name), name
		}
		name = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
}
