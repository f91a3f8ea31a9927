// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestNewStoreLayout(t *testing.T) {
	s := newTestStore(t)

	if !strings.HasPrefix(s.ID, "session_") {
		t.Errorf("session ID = %q, want session_ prefix", s.ID)
	}

	for _, dir := range []string{s.ImagesDir(), s.VideosDir(), s.AudioDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("missing artifact directory %s", dir)
		}
	}

	data, err := os.ReadFile(filepath.Join(s.BaseDir, "session_info.json"))
	if err != nil {
		t.Fatalf("reading session_info.json: %v", err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("parsing session_info.json: %v", err)
	}
	if info.SessionID != s.ID {
		t.Errorf("session_id = %q, want %q", info.SessionID, s.ID)
	}
	if info.APICalls != 0 {
		t.Errorf("api_calls = %d, want 0", info.APICalls)
	}

	logData, err := os.ReadFile(filepath.Join(s.BaseDir, "session.log"))
	if err != nil {
		t.Fatalf("reading session.log: %v", err)
	}
	if !strings.Contains(string(logData), "session created") {
		t.Errorf("session.log missing creation line: %q", logData)
	}
}

func TestRecordAPICallPersists(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.RecordAPICall(); err != nil {
			t.Fatalf("RecordAPICall() error = %v", err)
		}
	}
	if got := s.APICalls(); got != 3 {
		t.Errorf("APICalls() = %d, want 3", got)
	}

	// Counter survives process restart.
	reopened, err := Open(s.BaseDir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := reopened.APICalls(); got != 3 {
		t.Errorf("APICalls() after reopen = %d, want 3", got)
	}
}

func TestLogAppends(t *testing.T) {
	s := newTestStore(t)

	if err := s.Log("first event"); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if err := s.Log("second event"); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.BaseDir, "session.log"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	first := strings.Index(text, "first event")
	second := strings.Index(text, "second event")
	if first < 0 || second < 0 || second < first {
		t.Errorf("log lines out of order or missing:\n%s", text)
	}
}

func TestSaveImageAndSidecar(t *testing.T) {
	s := newTestStore(t)

	path, err := s.SaveImage([]byte("png-bytes"), "a red fox")
	if err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	if filepath.Ext(path) != ".png" {
		t.Errorf("artifact path = %q, want .png extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("artifact content = %q, err = %v", data, err)
	}

	sidecar, err := os.ReadFile(path + ".json")
	if err != nil {
		t.Fatalf("reading sidecar: %v", err)
	}
	var meta ImageMeta
	if err := json.Unmarshal(sidecar, &meta); err != nil {
		t.Fatalf("parsing sidecar: %v", err)
	}
	if meta.Type != "generated" {
		t.Errorf("sidecar type = %q, want generated", meta.Type)
	}
	if meta.Prompt != "a red fox" {
		t.Errorf("sidecar prompt = %q", meta.Prompt)
	}
	if meta.Filename != filepath.Base(path) {
		t.Errorf("sidecar filename = %q, want %q", meta.Filename, filepath.Base(path))
	}
	if meta.InputImage != "" {
		t.Errorf("generated image sidecar has input_image = %q", meta.InputImage)
	}
}

func TestSaveEditedImageRecordsInput(t *testing.T) {
	s := newTestStore(t)

	path, err := s.SaveEditedImage([]byte("edited"), "make it blue", "/tmp/in.png")
	if err != nil {
		t.Fatalf("SaveEditedImage() error = %v", err)
	}
	if !strings.Contains(filepath.Base(path), "image_edited_") {
		t.Errorf("edited artifact name = %q, want image_edited_ prefix", filepath.Base(path))
	}

	sidecar, err := os.ReadFile(path + ".json")
	if err != nil {
		t.Fatal(err)
	}
	var meta ImageMeta
	if err := json.Unmarshal(sidecar, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Type != "edited" {
		t.Errorf("sidecar type = %q, want edited", meta.Type)
	}
	if meta.InputImage != "/tmp/in.png" {
		t.Errorf("sidecar input_image = %q", meta.InputImage)
	}
}

func TestSaveImageUniqueNames(t *testing.T) {
	s := newTestStore(t)

	// Two saves within the same second must not collide.
	p1, err := s.SaveImage([]byte("one"), "p")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := s.SaveImage([]byte("two"), "p")
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Errorf("artifact paths collide: %q", p1)
	}
}

func TestVideoFileAndSidecar(t *testing.T) {
	s := newTestStore(t)

	f, err := s.CreateVideoFile()
	if err != nil {
		t.Fatalf("CreateVideoFile() error = %v", err)
	}
	if _, err := f.Write([]byte("mp4-bytes")); err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if err := s.SaveVideoSidecar(path, "vid123", "a storm at sea", 9); err != nil {
		t.Fatalf("SaveVideoSidecar() error = %v", err)
	}

	sidecar, err := os.ReadFile(path + ".json")
	if err != nil {
		t.Fatal(err)
	}
	var meta VideoMeta
	if err := json.Unmarshal(sidecar, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.VideoID != "vid123" {
		t.Errorf("sidecar video_id = %q", meta.VideoID)
	}
	if meta.Prompt != "a storm at sea" {
		t.Errorf("sidecar prompt = %q", meta.Prompt)
	}
	if meta.FileSize != 9 {
		t.Errorf("sidecar file_size = %d, want 9", meta.FileSize)
	}
}

func TestSaveAudio(t *testing.T) {
	s := newTestStore(t)

	path, err := s.SaveAudio([]byte("wav-bytes"), "hello there", "Kore")
	if err != nil {
		t.Fatalf("SaveAudio() error = %v", err)
	}
	if filepath.Ext(path) != ".wav" {
		t.Errorf("artifact path = %q, want .wav extension", path)
	}

	sidecar, err := os.ReadFile(path + ".json")
	if err != nil {
		t.Fatal(err)
	}
	var meta AudioMeta
	if err := json.Unmarshal(sidecar, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Voice != "Kore" {
		t.Errorf("sidecar voice = %q", meta.Voice)
	}
	if meta.Text != "hello there" {
		t.Errorf("sidecar text = %q", meta.Text)
	}
	if meta.FileSize != int64(len("wav-bytes")) {
		t.Errorf("sidecar file_size = %d", meta.FileSize)
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	s := newTestStore(t)

	conv := model.NewConversationWithSystem("gemini-2.5-flash", "be helpful")
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage("hello")

	if err := s.SaveTranscript(conv); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	loaded, err := s.LoadTranscript()
	if err != nil {
		t.Fatalf("LoadTranscript() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadTranscript() = nil after save")
	}
	if loaded.Len() != conv.Len() {
		t.Errorf("loaded %d messages, want %d", loaded.Len(), conv.Len())
	}
	if loaded.LastMessage().Content != "hello" {
		t.Errorf("last message = %q", loaded.LastMessage().Content)
	}
}

func TestLoadTranscriptEmpty(t *testing.T) {
	s := newTestStore(t)

	conv, err := s.LoadTranscript()
	if err != nil {
		t.Fatalf("LoadTranscript() error = %v", err)
	}
	if conv != nil {
		t.Errorf("LoadTranscript() = %+v, want nil for fresh session", conv)
	}
}

func TestOperationsFailWithoutSession(t *testing.T) {
	s := newTestStore(t)
	if err := os.RemoveAll(s.BaseDir); err != nil {
		t.Fatal(err)
	}

	if _, err := s.SaveImage([]byte("x"), "p"); err != ErrNoSession {
		t.Errorf("SaveImage error = %v, want ErrNoSession", err)
	}
	if _, err := s.SaveAudio([]byte("x"), "t", "Puck"); err != ErrNoSession {
		t.Errorf("SaveAudio error = %v, want ErrNoSession", err)
	}
	if _, err := s.CreateVideoFile(); err != ErrNoSession {
		t.Errorf("CreateVideoFile error = %v, want ErrNoSession", err)
	}
	if err := s.Log("x"); err != ErrNoSession {
		t.Errorf("Log error = %v, want ErrNoSession", err)
	}
}
