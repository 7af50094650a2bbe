// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/model"
)

// =============================================================================
// MACRO DB
// =============================================================================

func openTestDB(t *testing.T) *MacroDB {
	t.Helper()
	db, err := OpenMacroDB(filepath.Join(t.TempDir(), "macros.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMacroDB_SaveListDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.SaveMacro(ctx, commands.Macro{Name: "sapa", Text: "halo semua"}))
	require.NoError(t, db.SaveMacro(ctx, commands.Macro{Name: "Kopi", Text: "/gambar secangkir kopi"}))

	got, err := db.ListMacros(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Kopi", got[0].Name)
	assert.Equal(t, "sapa", got[1].Name)
	assert.False(t, got[0].CreatedAt.IsZero())

	require.NoError(t, db.DeleteMacro(ctx, "KOPI"))
	got, err = db.ListMacros(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	err = db.DeleteMacro(ctx, "kopi")
	assert.True(t, errors.Is(err, commands.ErrMacroNotFound), "got %v", err)
}

func TestMacroDB_UpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, db.SaveMacro(ctx, commands.Macro{Name: "sapa", Text: "halo", CreatedAt: created, UpdatedAt: created}))
	require.NoError(t, db.SaveMacro(ctx, commands.Macro{Name: "sapa", Text: "halo lagi"}))

	got, err := db.ListMacros(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "halo lagi", got[0].Text)
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.True(t, got[0].UpdatedAt.After(created))
}

func TestMacroDB_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "macros.db")

	db, err := OpenMacroDB(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveMacro(ctx, commands.Macro{Name: "sapa", Text: "halo"}))
	require.NoError(t, db.Close())

	_, err = db.ListMacros(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	db, err = OpenMacroDB(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.ListMacros(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "halo", got[0].Text)
}

func TestMacroDB_BacksRegistry(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	reg := commands.NewRegistry(db)
	_, err := reg.SaveMacro(ctx, "sapa", "halo semua")
	require.NoError(t, err)

	fresh := commands.NewRegistry(db)
	require.NoError(t, fresh.LoadMacros(ctx))
	m, ok := fresh.Macro("/sapa")
	require.True(t, ok)
	assert.Equal(t, "halo semua", m.Text)
}

// =============================================================================
// YAML
// =============================================================================

func TestMacrosYAML_RoundTrip(t *testing.T) {
	in := []commands.Macro{
		{Name: "sapa", Text: "halo semua"},
		{Name: "kopi", Text: "/gambar kopi --style=vintage"},
	}
	var buf bytes.Buffer
	require.NoError(t, ExportMacros(&buf, in))
	assert.Contains(t, buf.String(), "version: 1")

	out, err := ImportMacros(&buf)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "kopi", out[1].Name)
	assert.Equal(t, "/gambar kopi --style=vintage", out[1].Text)
}

func TestImportMacros_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad name":   "macros:\n  - name: \"bad name\"\n    text: halo\n",
		"empty text": "macros:\n  - name: sapa\n    text: \"\"\n",
		"not yaml":   "macros: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ImportMacros(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	out, err := ImportMacros(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, out)
}

// =============================================================================
// MEDIA
// =============================================================================

func TestMediaStore_SaveAndMaterialize(t *testing.T) {
	s, err := NewMediaStore(t.TempDir())
	require.NoError(t, err)

	path, err := s.Save("image", &backend.Media{MIMEType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "nexus-image-"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	_, err = s.Save("image", &backend.Media{MIMEType: "image/png"})
	assert.Error(t, err)

	art, err := s.Materialize(&backend.Media{MIMEType: "image/jpeg", Data: []byte("jpg")})
	require.NoError(t, err)
	assert.FileExists(t, art.URL())
	assert.Equal(t, s.PreviewDir, filepath.Dir(art.URL()))
	require.NoError(t, art.Release())
	assert.NoFileExists(t, art.URL())
	assert.NoError(t, art.Release(), "second release is a no-op")
}

func TestMediaStore_PurgePreviews(t *testing.T) {
	s, err := NewMediaStore(t.TempDir())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.Materialize(&backend.Media{MIMEType: "image/png", Data: []byte{1}})
		require.NoError(t, err)
	}
	require.NoError(t, s.PurgePreviews())
	entries, err := os.ReadDir(s.PreviewDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".mp4", ExtensionFor("video/mp4"))
	assert.Equal(t, ".wav", ExtensionFor("audio/wav; rate=24000"))
	assert.Equal(t, ".bin", ExtensionFor("application/x-unknown"))
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

func TestFormatTranscript(t *testing.T) {
	msgs := []model.Message{
		{Role: model.RoleUser, Text: "halo"},
		{Role: model.RoleModel, Text: "hai juga"},
		{Role: model.RoleModel, ImageURL: "/tmp/a.png"},
		{Role: model.RoleModel},
	}
	got := FormatTranscript(msgs)
	want := "[User]\nhalo\n\n[NEXUS]\nhai juga\n\n[NEXUS]\n(gambar: /tmp/a.png)\n\n[NEXUS]\n(konten media)\n"
	assert.Equal(t, want, got)
}

func TestTranscriptStore_Save(t *testing.T) {
	s, err := NewTranscriptStore(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	path, err := s.Save([]model.Message{{Role: model.RoleUser, Text: "halo"}})
	require.NoError(t, err)
	assert.Equal(t, "nexus-chat-20250304-050607.txt", filepath.Base(path))
	assert.FileExists(t, strings.TrimSuffix(path, ".txt")+".json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[User]\nhalo\n", string(data))
}
