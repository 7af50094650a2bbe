// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/util"
)

// TranscriptStore saves chat transcripts.
type TranscriptStore struct {
	Dir string
	now func() time.Time
}

// NewTranscriptStore creates dataDir/transcripts.
func NewTranscriptStore(dataDir string) (*TranscriptStore, error) {
	dir := filepath.Join(dataDir, "transcripts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &TranscriptStore{Dir: dir, now: time.Now}, nil
}

// storedTranscript is the JSON twin of the text transcript.
type storedTranscript struct {
	SavedAt  time.Time       `json:"saved_at"`
	Messages []model.Message `json:"messages"`
}

// Save writes messages as nexus-chat-<timestamp>.txt plus a .json twin and
// returns the text file's path.
func (s *TranscriptStore) Save(messages []model.Message) (string, error) {
	now := s.now()
	base := filepath.Join(s.Dir, "nexus-chat-"+now.Format("20060102-150405"))

	if err := util.AtomicWriteFile(base+".txt", []byte(FormatTranscript(messages)), 0644); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	data, err := json.MarshalIndent(storedTranscript{SavedAt: now, Messages: messages}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	if err := util.AtomicWriteFile(base+".json", data, 0644); err != nil {
		return "", fmt.Errorf("save transcript json: %w", err)
	}
	return base + ".txt", nil
}

// FormatTranscript renders messages as [User] / [NEXUS] blocks. Messages
// without text show what media they carry.
func FormatTranscript(messages []model.Message) string {
	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", m.Role.DisplayName(), transcriptBody(m)))
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

func transcriptBody(m model.Message) string {
	var lines []string
	if t := strings.TrimSpace(m.Text); t != "" {
		lines = append(lines, t)
	}
	if m.Attachment != "" {
		lines = append(lines, "(lampiran: "+m.Attachment+")")
	}
	for _, media := range []struct{ label, path string }{
		{"gambar", m.ImageURL}, {"video", m.VideoURL}, {"audio", m.AudioURL},
	} {
		if media.path != "" {
			lines = append(lines, fmt.Sprintf("(%s: %s)", media.label, media.path))
		}
	}
	if m.Document != nil {
		lines = append(lines, fmt.Sprintf("(dokumen %s: %s)", m.Document.Format, m.Document.Filename))
	}
	if len(lines) == 0 {
		return "(konten media)"
	}
	return strings.Join(lines, "\n")
}
