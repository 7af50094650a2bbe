// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ipapadil7-star/nexus/internal/session"
	"github.com/ipapadil7-star/nexus/internal/ui/styles"
)

const maxSuggestions = 6

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Memuat..."
	}

	var body string
	switch m.overlay {
	case overlayHelp:
		body = m.helpOverlay()
	case overlayTerminal:
		body = m.terminalOverlay()
	default:
		body = m.viewport.View()
	}

	parts := []string{m.header(), body}
	if m.overlay == overlayNone {
		if popup := m.completionPopup(); popup != "" {
			parts = append(parts, popup)
		}
		if m.notice != "" {
			parts = append(parts, m.theme.StatusWarn.Render(m.notice))
		}
		parts = append(parts, m.input.View())
	}
	parts = append(parts, m.statusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) header() string {
	st := m.orch.Sessions().Status()
	title := m.theme.HeaderTitle.Render("NEXUS")
	subtitle := m.theme.HeaderSubtitle.Render(st.Persona.DisplayName())

	flags := headerFlags(st)
	if f := m.orch.Filter(); f != "" {
		flags = append(flags, "filter: "+f)
	}
	line := title + " " + subtitle
	if len(flags) > 0 && m.theme.GetLayoutMode() != styles.LayoutNarrow {
		line += "  " + m.theme.StatusKey.Render(strings.Join(flags, " · "))
	}
	return m.theme.Header.Width(m.width).Render(line)
}

// headerFlags describes the session state shown next to the title.
func headerFlags(st session.Status) []string {
	var flags []string
	switch {
	case st.ComicActive:
		flags = append(flags, fmt.Sprintf("komik %s · %d panel", st.ComicStyle, st.PanelCount))
	case st.PendingComic:
		flags = append(flags, "pilih gaya komik")
	}
	if st.Confirming {
		flags = append(flags, "menunggu /ya atau /tidak")
	}
	return flags
}

func (m Model) statusBar() string {
	var left string
	if staged := m.orch.StagedAttachment(); staged != "" {
		left = m.theme.Attachment.Render("📎 "+filepath.Base(staged)) + "  "
	}
	if m.orch.Busy() {
		left += m.spinner.View() + " "
	}

	var hints []string
	bindings := m.keys.ShortHelp()
	if m.overlay != overlayNone {
		bindings = m.keys.FullHelp()[2]
	}
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, m.theme.StatusKey.Render(h.Key)+" "+h.Desc)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Join(hints, "  "))
}

func (m Model) completionPopup() string {
	cs := m.completions
	if !cs.Visible || len(cs.Completions) == 0 {
		return ""
	}
	start := 0
	if cs.Selected >= maxSuggestions {
		start = cs.Selected - maxSuggestions + 1
	}
	end := min(start+maxSuggestions, len(cs.Completions))

	nameWidth := 0
	for _, c := range cs.Completions[start:end] {
		nameWidth = max(nameWidth, lipgloss.Width(c.Display))
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := cs.Completions[i]
		line := styles.PadRight(c.Display, nameWidth+2) + m.theme.CompletionUsage.Render(c.Description)
		if i == cs.Selected {
			lines = append(lines, m.theme.CompletionSelected.Render(line))
		} else {
			lines = append(lines, m.theme.CompletionItem.Render(line))
		}
	}
	return m.theme.CompletionPopup.Render(strings.Join(lines, "\n"))
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) helpOverlay() string {
	title := m.theme.OverlayTitle.Render("Bantuan")
	return m.theme.Overlay.Width(m.width - 2).Render(title + "\n" + m.helpView.View())
}

func (m Model) terminalOverlay() string {
	height := max(m.viewport.Height-3, 1)
	lines := m.termLines
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	content := m.theme.TerminalText.Render(strings.Join(lines, "\n"))
	prompt := m.theme.TerminalText.Render(m.shell.Prompt()) + m.termInput.View()
	title := m.theme.OverlayTitle.Render("Terminal")
	return m.theme.Overlay.Width(m.width - 2).Render(title + "\n" + content + "\n" + prompt)
}
