// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for genstudio.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.genstudio/config.toml
//   - ~/.genstudio/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/genstudio-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete genstudio configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API gateway configuration
	API APIConfig `toml:"api" json:"api"`

	// Per-modality defaults
	Chat   ChatConfig   `toml:"chat" json:"chat"`
	Image  ImageConfig  `toml:"image" json:"image"`
	Video  VideoConfig  `toml:"video" json:"video"`
	Speech SpeechConfig `toml:"speech" json:"speech"`

	// Local storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// APIConfig contains gateway connection settings.
type APIConfig struct {
	// BaseURL is the root of the AI gateway (OpenAI-compatible plus
	// Gemini-style endpoints under /gemini).
	BaseURL string `toml:"base_url" json:"base_url"`
	// Key is the API key. Prefer the GENSTUDIO_API_KEY environment
	// variable over storing the key in the config file.
	Key string `toml:"key" json:"key"`
	// TimeoutSecs is the per-request timeout for synchronous calls.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerSec caps outbound request rate (0 = unlimited).
	RequestsPerSec float64 `toml:"requests_per_sec" json:"requests_per_sec"`
}

// ChatConfig contains chat defaults.
type ChatConfig struct {
	Model        string `toml:"model" json:"model"`
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
}

// ImageConfig contains image generation defaults.
type ImageConfig struct {
	Model       string `toml:"model" json:"model"`
	AspectRatio string `toml:"aspect_ratio" json:"aspect_ratio"`
}

// VideoConfig contains video generation defaults and poller policy.
type VideoConfig struct {
	Model          string `toml:"model" json:"model"`
	AspectRatio    string `toml:"aspect_ratio" json:"aspect_ratio"`
	Resolution     string `toml:"resolution" json:"resolution"`
	NegativePrompt string `toml:"negative_prompt" json:"negative_prompt"`

	// PollIntervalSecs is the wait between status checks.
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs"`
	// MaxPollAttempts bounds the status loop (0 = use default, never unbounded).
	MaxPollAttempts int `toml:"max_poll_attempts" json:"max_poll_attempts"`
	// RetryBudget is how many transient poll failures are retried with backoff.
	RetryBudget int `toml:"retry_budget" json:"retry_budget"`
}

// SpeechConfig contains text-to-speech defaults.
type SpeechConfig struct {
	Model string `toml:"model" json:"model"`
	Voice string `toml:"voice" json:"voice"`
}

// StorageConfig contains local filesystem settings.
type StorageConfig struct {
	// DataDir is where session directories are created.
	DataDir string `toml:"data_dir" json:"data_dir"`
	// HistoryDB is the cross-session artifact index (empty = default
	// ~/.genstudio/history.db).
	HistoryDB string `toml:"history_db" json:"history_db"`
}

// LoggingConfig contains application log settings.
type LoggingConfig struct {
	// Dir is the directory for application log files.
	Dir string `toml:"dir" json:"dir"`
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level"`
	// Console mirrors log output to stderr when true.
	Console bool `toml:"console" json:"console"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Voices is the set of prebuilt TTS voices offered in the UI. The set is a
// UI convenience only; unknown names are sent to the gateway verbatim.
var Voices = []string{"Zephyr", "Puck", "Charon", "Kore"}

// AspectRatios are the choices offered for image and video generation.
var AspectRatios = []string{"16:9", "9:16", "1:1"}

// Resolutions are the choices offered for video generation.
var Resolutions = []string{"720p", "1080p"}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:        "https://api.thucchien.ai",
			TimeoutSecs:    60,
			RequestsPerSec: 0,
		},
		Chat: ChatConfig{
			Model:        "gemini-2.5-flash",
			SystemPrompt: "You are a friendly, professional assistant.",
		},
		Image: ImageConfig{
			Model:       "gemini-2.5-flash-image-preview",
			AspectRatio: "1:1",
		},
		Video: VideoConfig{
			Model:            "veo-3.0-generate-001",
			AspectRatio:      "16:9",
			Resolution:       "720p",
			NegativePrompt:   "blurry, low quality",
			PollIntervalSecs: 60,
			MaxPollAttempts:  30,
			RetryBudget:      3,
		},
		Speech: SpeechConfig{
			Model: "gemini-2.5-flash-preview-tts",
			Voice: "Zephyr",
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Logging: LoggingConfig{
			Dir:     "logs",
			Level:   "info",
			Console: true,
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Dir returns the genstudio configuration directory (~/.genstudio).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".genstudio"), nil
}

// Load reads configuration from the default locations, applies environment
// overrides, and validates the result. A missing config file is not an
// error; defaults are used.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFromDir(dir)
}

// LoadFromDir loads configuration from a specific directory.
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	tomlPath := filepath.Join(dir, "config.toml")
	jsonPath := filepath.Join(dir, "config.json")

	switch {
	case fileExists(tomlPath):
		if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", tomlPath, err)
		}
	case fileExists(jsonPath):
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies GENSTUDIO_* environment variables over the
// file-based configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GENSTUDIO_API_KEY"); v != "" {
		c.API.Key = strings.TrimSpace(v)
	}
	if v := os.Getenv("GENSTUDIO_BASE_URL"); v != "" {
		c.API.BaseURL = strings.TrimSuffix(strings.TrimSpace(v), "/")
	}
	if v := os.Getenv("GENSTUDIO_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validation errors.
var (
	ErrInvalidBaseURL      = errors.New("api.base_url must be a valid http(s) URL")
	ErrInvalidPollInterval = errors.New("video.poll_interval_secs must be positive")
	ErrInvalidPollAttempts = errors.New("video.max_poll_attempts must be positive")
)

// Validate checks the configuration for usable values, repairing fields
// where a safe default exists.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.API.BaseURL)
	}
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")

	if c.API.TimeoutSecs <= 0 {
		c.API.TimeoutSecs = 60
	}
	if c.Video.PollIntervalSecs <= 0 {
		return ErrInvalidPollInterval
	}
	if c.Video.MaxPollAttempts <= 0 {
		return ErrInvalidPollAttempts
	}
	if c.Video.RetryBudget < 0 {
		c.Video.RetryBudget = 0
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration as TOML to the default location.
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return c.SaveToDir(dir)
}

// SaveToDir writes the configuration as TOML to a specific directory.
func (c *Config) SaveToDir(dir string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	// Config may hold the API key; keep it owner-readable only.
	return util.AtomicWriteFile(filepath.Join(dir, "config.toml"), []byte(sb.String()), 0600)
}

// HistoryDBPath resolves the artifact index location.
func (c *Config) HistoryDBPath() (string, error) {
	if c.Storage.HistoryDB != "" {
		return c.Storage.HistoryDB, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
