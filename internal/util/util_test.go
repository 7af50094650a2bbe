// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.txt")
	if err := AtomicWriteFile(path, []byte("halo"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "halo" {
		t.Errorf("content = %q, want %q", got, "halo")
	}
}

func TestAtomicWriteFile_OverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	for _, body := range []string{"first", "second"} {
		if err := AtomicWriteFile(path, []byte(body), 0600); err != nil {
			t.Fatalf("write %q: %v", body, err)
		}
	}
	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (temp file leaked)", len(entries))
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"halo", 10, "halo"},
		{"halo dunia", 7, "halo..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := TruncateWidth("short", 10); got != "short" {
		t.Errorf("TruncateWidth(short) = %q", got)
	}
	got := TruncateWidth("日本語のテキスト", 8)
	if w := StringWidth(got); w > 8 {
		t.Errorf("TruncateWidth width = %d, want <= 8 (%q)", w, got)
	}
	if StringWidth("日本") != 4 {
		t.Errorf("StringWidth(日本) = %d, want 4", StringWidth("日本"))
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  a \t b\n\nc  "); got != "a b c" {
		t.Errorf("CollapseSpaces = %q, want %q", got, "a b c")
	}
}
