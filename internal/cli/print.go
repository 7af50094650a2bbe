// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/orchestrator"
	"github.com/ipapadil7-star/nexus/internal/ui/chat"
	"github.com/ipapadil7-star/nexus/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().Foreground(styles.Magenta).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(styles.Magenta).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(styles.TextMuted)
	mediaStyle  = lipgloss.NewStyle().Foreground(styles.Emerald)
)

// =============================================================================
// PRINTER
// =============================================================================

// printer writes timeline messages as they settle. It is a timeline
// listener, so it runs on whichever goroutine changed the timeline.
type printer struct {
	mu  sync.Mutex
	out io.Writer
	md  *glamour.TermRenderer

	// status remembers the last progress line per placeholder so repeated
	// updates print once.
	status  map[string]string
	printed map[string]bool
}

// newPrinter renders markdown with glamour when markdown is true and
// prints plain text otherwise.
func newPrinter(out io.Writer, markdown bool, style string, width int) *printer {
	p := &printer{out: out, status: make(map[string]string), printed: make(map[string]bool)}
	if !markdown {
		return p
	}
	opt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		opt = glamour.WithAutoStyle()
	}
	if md, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width)); err == nil {
		p.md = md
	}
	return p
}

// handle is the timeline listener.
func (p *printer) handle(ev model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := ev.Message
	switch ev.Kind {
	case model.EventCleared:
		clear(p.status)
		clear(p.printed)
		fmt.Fprintln(p.out, mutedStyle.Render("(percakapan dibersihkan)"))
	case model.EventAdded, model.EventUpdated:
		if m.Role == model.RoleUser {
			return
		}
		if m.IsPlaceholder() && !m.GenerationStatus.Terminal() {
			p.progress(m)
			return
		}
		if p.printed[m.ID] {
			// Panel edits reprint the message.
			fmt.Fprintln(p.out, mutedStyle.Render("(diperbarui)"))
		}
		p.printed[m.ID] = true
		delete(p.status, m.ID)
		fmt.Fprintln(p.out, p.format(m))
	}
}

func (p *printer) progress(m model.Message) {
	line := m.GenerationText
	if m.GenerationProgress > 0 {
		line = fmt.Sprintf("%s %d%%", line, m.GenerationProgress)
	}
	if line == "" || p.status[m.ID] == line {
		return
	}
	p.status[m.ID] = line
	fmt.Fprintln(p.out, mutedStyle.Render("… "+line))
}

// format renders one settled model message.
func (p *printer) format(m model.Message) string {
	var b strings.Builder
	label := m.Role.DisplayName()
	if m.IsComicPanel && m.PanelNumber > 0 {
		label += fmt.Sprintf(" · Panel #%d", m.PanelNumber)
	}
	b.WriteString(labelStyle.Render(label))
	b.WriteString("\n")

	if m.GenerationStatus == model.StatusError {
		b.WriteString(errorStyle.Render("✗ " + m.Text))
		if m.SourceText != "" {
			b.WriteString("\n" + mutedStyle.Render("Ketik /ulang untuk mencoba lagi."))
		}
		return b.String()
	}

	if m.Text != "" {
		b.WriteString(p.markdown(m.Text))
	}
	if lines := chat.MediaLines(m); len(lines) > 0 {
		if m.Text != "" {
			b.WriteString("\n")
		}
		b.WriteString(mediaStyle.Render(strings.Join(lines, "\n")))
	}
	return b.String()
}

func (p *printer) markdown(text string) string {
	if p.md == nil {
		return text
	}
	out, err := p.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// effect prints what the TUI would show in an overlay.
func (p *printer) effect(e orchestrator.Effect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch e.Kind {
	case orchestrator.EffectHelp:
		fmt.Fprintln(p.out, p.markdown(e.Text))
	case orchestrator.EffectTerminal:
		fmt.Fprintln(p.out, mutedStyle.Render("Terminal cuma ada di mode TUI. Jalankan `nexus` di terminal."))
	case orchestrator.EffectFilter:
		if e.Text == "" {
			fmt.Fprintln(p.out, mutedStyle.Render("Filter gaya dimatikan."))
		} else {
			fmt.Fprintln(p.out, mutedStyle.Render("Filter gaya: "+e.Text))
		}
	}
}
