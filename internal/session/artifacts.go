// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"time"

	"github.com/jeranaias/genstudio-tui/internal/util"
)

// ImageMeta is the sidecar record written beside each saved image.
type ImageMeta struct {
	Type       string    `json:"type"`
	Prompt     string    `json:"prompt"`
	InputImage string    `json:"input_image,omitempty"`
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
}

// VideoMeta is the sidecar record written beside each downloaded video.
type VideoMeta struct {
	VideoID   string    `json:"video_id"`
	Prompt    string    `json:"prompt"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	FileSize  int64     `json:"file_size"`
}

// AudioMeta is the sidecar record written beside each saved audio clip.
type AudioMeta struct {
	Text      string    `json:"text"`
	Voice     string    `json:"voice"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	FileSize  int64     `json:"file_size"`
}

// SaveImage writes a generated image and its sidecar to the session's
// image directory. Returns the artifact path.
func (s *Store) SaveImage(data []byte, prompt string) (string, error) {
	return s.saveImage(data, ImageMeta{Type: "generated", Prompt: prompt}, "image")
}

// SaveEditedImage writes an edited image and its sidecar, recording the
// input image the edit was applied to.
func (s *Store) SaveEditedImage(data []byte, prompt, inputImage string) (string, error) {
	meta := ImageMeta{Type: "edited", Prompt: prompt, InputImage: inputImage}
	return s.saveImage(data, meta, "image_edited")
}

func (s *Store) saveImage(data []byte, meta ImageMeta, prefix string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	path, name := uniquePath(s.ImagesDir(), prefix, ".png")
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	meta.Filename = name
	meta.CreatedAt = time.Now()
	if err := s.writeSidecar(path, meta); err != nil {
		return "", err
	}

	_ = s.Log("saved " + meta.Type + " image " + name)
	return path, nil
}

// CreateVideoFile opens a new video artifact file for streaming writes.
// The caller downloads directly into the returned file and must close
// it, then record the sidecar with SaveVideoSidecar.
func (s *Store) CreateVideoFile() (*os.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	path, _ := uniquePath(s.VideosDir(), "video", ".mp4")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create video file: %w", err)
	}
	return f, nil
}

// SaveVideoSidecar records the provenance of a downloaded video.
func (s *Store) SaveVideoSidecar(path, videoID, prompt string, size int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	meta := VideoMeta{
		VideoID:   videoID,
		Prompt:    prompt,
		Filename:  filepath.Base(path),
		CreatedAt: time.Now(),
		FileSize:  size,
	}
	if err := s.writeSidecar(path, meta); err != nil {
		return err
	}

	_ = s.Log("saved video " + meta.Filename)
	return nil
}

// SaveAudio writes a synthesized audio clip and its sidecar to the
// session's audio directory. Returns the artifact path.
func (s *Store) SaveAudio(data []byte, text, voice string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	path, name := uniquePath(s.AudioDir(), "audio", ".wav")
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save audio: %w", err)
	}

	meta := AudioMeta{
		Text:      text,
		Voice:     voice,
		Filename:  name,
		CreatedAt: time.Now(),
		FileSize:  int64(len(data)),
	}
	if err := s.writeSidecar(path, meta); err != nil {
		return "", err
	}

	_ = s.Log("saved audio " + name)
	return path, nil
}

// writeSidecar writes <artifact>.json beside the artifact, atomically.
func (s *Store) writeSidecar(artifactPath string, meta any) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(artifactPath+".json", data, 0644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}
