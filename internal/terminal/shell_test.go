// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package terminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShell_Listing(t *testing.T) {
	s := New("")
	res := s.Exec("ls")
	assert.Equal(t, []string{"nexus@host:~$ ls", "README.md", "projects/", "secrets.txt"}, res.Output)

	res = s.Exec("ls projects")
	assert.Equal(t, []string{"project_alpha.txt", "project_beta.txt"}, res.Output[1:])

	res = s.Exec("ls hilang")
	assert.Contains(t, res.Output[1], "tidak dapat mengakses 'hilang'")
}

func TestShell_Navigation(t *testing.T) {
	tests := []struct {
		name string
		cmds []string
		cwd  string
	}{
		{"into dir", []string{"cd projects"}, "~/projects"},
		{"up", []string{"cd projects", "cd .."}, "~"},
		{"up past root", []string{"cd ../.."}, "~"},
		{"home", []string{"cd projects", "cd ~"}, "~"},
		{"empty stays", []string{"cd projects", "cd"}, "~/projects"},
		{"absolute", []string{"cd projects", "cd /projects"}, "~/projects"},
		{"file is not a dir", []string{"cd secrets.txt"}, "~"},
		{"missing", []string{"cd nowhere"}, "~"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("")
			for _, c := range tt.cmds {
				s.Exec(c)
			}
			assert.Equal(t, tt.cwd, s.Cwd())
		})
	}
}

func TestShell_CdError(t *testing.T) {
	s := New("")
	res := s.Exec("cd nowhere")
	assert.Equal(t, "cd: direktori tidak ditemukan: nowhere", res.Output[1])
}

func TestShell_Cat(t *testing.T) {
	s := New("")
	res := s.Exec("cat secrets.txt")
	assert.Equal(t, "Rahasia alam semesta? 42. Udah basi, kan?", res.Output[1])

	res = s.Exec("cat projects/project_alpha.txt")
	assert.Equal(t, "Rencana Dominasi Dunia - Tahap 1.", res.Output[1])

	res = s.Exec("cat projects")
	assert.Equal(t, "cat: projects: File tidak ditemukan atau sebuah direktori", res.Output[1])

	res = s.Exec("cat README.md")
	assert.Equal(t, "# NEXUS Terminal", res.Output[1])
	assert.Greater(t, len(res.Output), 5)
}

func TestShell_Misc(t *testing.T) {
	s := New("akbar")
	s.now = func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) }

	assert.Equal(t, "akbar@host:~$ ", s.Prompt())
	assert.Equal(t, []string{"halo dunia"}, s.Exec("echo halo   dunia").Output[1:])
	assert.Equal(t, []string{"Sat Mar 01 2025 09:30:00 UTC"}, s.Exec("date").Output[1:])
	assert.Equal(t, []string{"Gue? Gue AKBAR. Penguasa di sini."}, s.Exec("whoami").Output[1:])
	assert.Equal(t, []string{"bash: perintah tidak ditemukan: rm"}, s.Exec("rm -rf /").Output[1:])
	assert.Len(t, s.Exec("HELP").Output, 11)

	assert.True(t, s.Exec("clear").Clear)
	assert.True(t, s.Exec("exit").Exit)
}

func TestShell_History(t *testing.T) {
	s := New("")
	s.Exec("ls")
	s.Exec("   ")
	s.Exec("cd projects")
	require.Len(t, s.History(), 2)
	assert.Equal(t, []string{"cd projects", "ls"}, s.History())
	assert.Equal(t, []string{"nexus@host:~/projects$ "}, s.Exec("").Output)
}
