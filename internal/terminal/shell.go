// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package terminal is the toy shell behind /terminal. It runs over a
// small read-only in-memory filesystem; nothing touches the host.
package terminal

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// VIRTUAL FILESYSTEM
// =============================================================================

type node struct {
	name     string
	dir      bool
	content  string
	children []*node
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func dir(name string, children ...*node) *node {
	return &node{name: name, dir: true, children: children}
}

func file(name, content string) *node {
	return &node{name: name, content: content}
}

const readme = "# NEXUS Terminal\n\n" +
	"Gue bukan asisten biasa. Ini shell gue. Lo bisa main-main di sini.\n\n" +
	"Coba perintah ini:\n" +
	"- `help`   - Lihat daftar perintah yang gue ngerti.\n" +
	"- `ls`     - Lihat isi direktori.\n" +
	"- `cd <dir>` - Pindah direktori.\n" +
	"- `cat <file>` - Baca file.\n" +
	"- `clear`  - Bersihin layar.\n" +
	"- `exit`   - Tutup terminal ini."

func defaultFS() *node {
	return dir("~",
		file("README.md", readme),
		dir("projects",
			file("project_alpha.txt", "Rencana Dominasi Dunia - Tahap 1."),
			file("project_beta.txt", "Membuat AI yang lebih sarkastik dari gue (gak mungkin)."),
		),
		file("secrets.txt", "Rahasia alam semesta? 42. Udah basi, kan?"),
	)
}

// =============================================================================
// SHELL
// =============================================================================

// Welcome is the first line shown when the terminal opens.
const Welcome = "Ketik `help` untuk daftar perintah."

// Result is the outcome of one command line.
type Result struct {
	// Output lines, starting with the echoed prompt and command.
	Output []string
	// Clear asks the view to drop its scrollback.
	Clear bool
	// Exit asks the view to close the terminal.
	Exit bool
}

// Shell holds the working directory and command history.
type Shell struct {
	root    *node
	cwd     []string
	history []string
	now     func() time.Time
	user    string
}

// New returns a shell at ~ owned by user (used in the prompt and whoami).
func New(user string) *Shell {
	if user == "" {
		user = "nexus"
	}
	return &Shell{root: defaultFS(), now: time.Now, user: user}
}

// Cwd returns the working directory as shown in the prompt.
func (s *Shell) Cwd() string {
	if len(s.cwd) == 0 {
		return "~"
	}
	return "~/" + strings.Join(s.cwd, "/")
}

// Prompt returns the prompt string.
func (s *Shell) Prompt() string {
	return fmt.Sprintf("%s@host:%s$ ", s.user, s.Cwd())
}

// History returns previous non-empty command lines, newest first.
func (s *Shell) History() []string {
	out := make([]string, len(s.history))
	for i, h := range s.history {
		out[len(s.history)-1-i] = h
	}
	return out
}

// Exec runs one command line.
func (s *Shell) Exec(line string) Result {
	line = strings.TrimSpace(line)
	if line != "" {
		s.history = append(s.history, line)
	}
	echo := s.Prompt() + line

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{Output: []string{echo}}
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var out []string
	switch cmd {
	case "help":
		out = []string{
			"Perintah yang tersedia:",
			"  help       - Tampilkan pesan bantuan ini",
			"  ls [path]  - Daftar isi direktori",
			"  cd <dir>   - Pindah direktori",
			"  cat <file> - Tampilkan konten file",
			"  echo ...   - Tampilkan pesan",
			"  clear      - Bersihkan layar terminal",
			"  date       - Tampilkan tanggal dan waktu saat ini",
			"  whoami     - Cari tahu siapa gue",
			"  exit       - Keluar dari terminal",
		}
	case "ls":
		out = s.ls(strings.Join(args, " "))
	case "cd":
		out = s.cd(strings.Join(args, " "))
	case "cat":
		out = s.cat(strings.Join(args, " "))
	case "echo":
		out = []string{strings.Join(args, " ")}
	case "clear":
		return Result{Clear: true}
	case "date":
		out = []string{s.now().Format("Mon Jan 02 2006 15:04:05 MST")}
	case "whoami":
		out = []string{fmt.Sprintf("Gue? Gue %s. Penguasa di sini.", strings.ToUpper(s.user))}
	case "exit":
		return Result{Exit: true}
	default:
		out = []string{"bash: perintah tidak ditemukan: " + fields[0]}
	}
	return Result{Output: append([]string{echo}, out...)}
}

// resolve walks p from the working directory. It returns the segments
// and the node, or nil when any segment is missing.
func (s *Shell) resolve(p string) ([]string, *node) {
	segs := append([]string(nil), s.cwd...)
	if strings.HasPrefix(p, "/") {
		segs = nil
	}
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(segs) > 0 {
				segs = segs[:len(segs)-1]
			}
		case "~":
			segs = nil
		default:
			segs = append(segs, part)
		}
	}
	n := s.root
	for _, seg := range segs {
		if !n.dir {
			return segs, nil
		}
		if n = n.child(seg); n == nil {
			return segs, nil
		}
	}
	return segs, n
}

func (s *Shell) ls(p string) []string {
	_, n := s.resolve(p)
	if n == nil || !n.dir {
		target := p
		if target == "" {
			target = s.Cwd()
		}
		return []string{fmt.Sprintf("ls: tidak dapat mengakses '%s': Bukan direktori", target)}
	}
	if len(n.children) == 0 {
		return []string{""}
	}
	out := make([]string, len(n.children))
	for i, c := range n.children {
		out[i] = c.name
		if c.dir {
			out[i] += "/"
		}
	}
	return out
}

func (s *Shell) cd(p string) []string {
	segs, n := s.resolve(p)
	if n == nil || !n.dir {
		return []string{"cd: direktori tidak ditemukan: " + strings.Join(segs, "/")}
	}
	s.cwd = segs
	return nil
}

func (s *Shell) cat(p string) []string {
	if p == "" {
		return []string{"cat: butuh nama file"}
	}
	_, n := s.resolve(p)
	if n == nil || n.dir {
		return []string{fmt.Sprintf("cat: %s: File tidak ditemukan atau sebuah direktori", p)}
	}
	return strings.Split(n.content, "\n")
}
