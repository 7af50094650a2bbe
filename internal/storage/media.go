// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/progress"
	"github.com/ipapadil7-star/nexus/internal/util"
)

var extByMIME = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"audio/wav":       ".wav",
	"audio/x-wav":     ".wav",
	"audio/mpeg":      ".mp3",
	"application/pdf": ".pdf",
	"text/markdown":   ".md",
	"text/csv":        ".csv",
	"text/plain":      ".txt",
}

// ExtensionFor returns the file extension for a MIME type, ".bin" if unknown.
func ExtensionFor(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	if ext, ok := extByMIME[mt]; ok {
		return ext
	}
	return ".bin"
}

// MediaStore writes generated media and transient previews to disk.
type MediaStore struct {
	// Dir holds generated files that stay until the user deletes them.
	Dir string
	// PreviewDir holds transient previews.
	PreviewDir string

	now func() time.Time
}

// NewMediaStore creates the media and preview directories under dataDir.
func NewMediaStore(dataDir string) (*MediaStore, error) {
	s := &MediaStore{
		Dir:        filepath.Join(dataDir, "media"),
		PreviewDir: filepath.Join(dataDir, "cache", "previews"),
		now:        time.Now,
	}
	for _, dir := range []string{s.Dir, s.PreviewDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

// Save writes m as nexus-<kind>-<timestamp>-<id><ext> and returns the path.
func (s *MediaStore) Save(kind string, m *backend.Media) (string, error) {
	if m == nil || len(m.Data) == 0 {
		return "", fmt.Errorf("save %s: empty media", kind)
	}
	name := fmt.Sprintf("nexus-%s-%s-%s%s", kind, s.now().Format("20060102-150405"), uuid.NewString()[:8], ExtensionFor(m.MIMEType))
	return s.SaveAs(name, m.Data)
}

// SaveAs writes data under Dir with the given file name.
func (s *MediaStore) SaveAs(name string, data []byte) (string, error) {
	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return path, nil
}

// Materialize writes a preview to PreviewDir. The returned artifact deletes
// the file on Release.
func (s *MediaStore) Materialize(m *backend.Media) (progress.Artifact, error) {
	f, err := os.CreateTemp(s.PreviewDir, "preview-*"+ExtensionFor(m.MIMEType))
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	if _, err := f.Write(m.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write preview: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close preview: %w", err)
	}
	return &FileArtifact{path: f.Name()}, nil
}

// PurgePreviews removes previews left behind by a crash.
func (s *MediaStore) PurgePreviews() error {
	entries, err := os.ReadDir(s.PreviewDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			os.Remove(filepath.Join(s.PreviewDir, e.Name()))
		}
	}
	return nil
}

// FileArtifact is a preview file on disk.
type FileArtifact struct {
	path string
}

// URL returns the preview's file path.
func (a *FileArtifact) URL() string { return a.path }

// Release deletes the preview file.
func (a *FileArtifact) Release() error {
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
