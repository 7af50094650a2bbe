// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/ui/styles"
)

const (
	retryHint   = "Ketik /ulang atau tekan Ctrl+R untuk mencoba lagi."
	minWrap     = 20
	progressBar = 24
)

// =============================================================================
// RENDERER
// =============================================================================

type cached struct {
	text  string
	width int
	out   string
}

// renderer turns timeline messages into terminal text. Markdown output is
// cached per message id because glamour is slow relative to a redraw.
type renderer struct {
	theme *styles.Theme
	style string
	width int
	md    *glamour.TermRenderer
	cache map[string]cached
}

func newRenderer(theme *styles.Theme, style string) *renderer {
	if style == "" {
		style = "dark"
	}
	r := &renderer{theme: theme, style: style, cache: make(map[string]cached)}
	r.setWidth(80)
	return r
}

// setWidth rebuilds the markdown renderer for a new wrap width.
func (r *renderer) setWidth(width int) {
	if width < minWrap {
		width = minWrap
	}
	if width == r.width && r.md != nil {
		return
	}
	r.width = width

	styleOpt := glamour.WithStandardStyle(r.style)
	if r.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	md, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		// Plain text fallback.
		md = nil
	}
	r.md = md
}

// markdown renders text as markdown, reusing the cached output when the
// message and width are unchanged.
func (r *renderer) markdown(id, text string) string {
	if c, ok := r.cache[id]; ok && c.text == text && c.width == r.width {
		return c.out
	}
	out := text
	if r.md != nil {
		if rendered, err := r.md.Render(text); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	r.cache[id] = cached{text: text, width: r.width, out: out}
	return out
}

// forget drops cache entries for messages no longer shown.
func (r *renderer) forget(msgs []model.Message) {
	keep := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		keep[m.ID] = struct{}{}
	}
	for id := range r.cache {
		if _, ok := keep[id]; !ok {
			delete(r.cache, id)
		}
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

// timeline renders every message separated by a blank line.
func (r *renderer) timeline(msgs []model.Message, spin string) string {
	r.forget(msgs)
	if len(msgs) == 0 {
		return r.theme.Timestamp.Render("Belum ada pesan. Coba /help untuk lihat semua perintah.")
	}
	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		blocks = append(blocks, r.message(m, spin))
	}
	return strings.Join(blocks, "\n\n")
}

func (r *renderer) message(m model.Message, spin string) string {
	var b strings.Builder
	b.WriteString(r.label(m))
	b.WriteString("\n")

	if m.Role == model.RoleUser {
		b.WriteString(r.theme.UserText.Width(r.width).Render(m.Text))
		if m.Attachment != "" {
			b.WriteString("\n")
			b.WriteString(r.theme.Attachment.Render("📎 " + m.Attachment))
		}
		return b.String()
	}

	switch m.GenerationStatus {
	case model.StatusPending, model.StatusGenerating:
		b.WriteString(r.progress(m, spin))
	case model.StatusError:
		b.WriteString(r.theme.ErrorText.Width(r.width).Render("✗ " + m.Text))
		if m.SourceText != "" {
			b.WriteString("\n")
			b.WriteString(r.theme.Timestamp.Render(retryHint))
		}
	default:
		if m.IsStyleSelector {
			b.WriteString(r.theme.Selector.Width(r.width - 4).Render(m.Text))
			break
		}
		if m.Text != "" {
			b.WriteString(r.markdown(m.ID, m.Text))
		}
		if media := r.media(m); media != "" {
			if m.Text != "" {
				b.WriteString("\n")
			}
			b.WriteString(media)
		}
	}
	return b.String()
}

func (r *renderer) label(m model.Message) string {
	name := m.Role.DisplayName()
	var label string
	if m.Role == model.RoleUser {
		label = r.theme.UserLabel.Render(name)
	} else {
		label = r.theme.ModelLabel.Render(name)
	}
	if m.IsComicPanel && m.PanelNumber > 0 {
		label += " " + r.theme.PanelBadge.Render(fmt.Sprintf("Panel #%d", m.PanelNumber))
	}
	if !m.CreatedAt.IsZero() {
		label += " " + r.theme.Timestamp.Render(m.CreatedAt.Format("15:04"))
	}
	return label
}

func (r *renderer) progress(m model.Message, spin string) string {
	text := m.GenerationText
	if text == "" {
		text = "Menunggu..."
	}
	lines := []string{spin + " " + r.theme.Generating.Render(text)}
	if m.GenerationProgress > 0 {
		bar := styles.RenderProgressBar(progressBar, m.GenerationProgress)
		lines = append(lines, r.theme.ProgressBar.Render(bar)+fmt.Sprintf(" %d%%", m.GenerationProgress))
	}
	if m.VideoURL != "" {
		lines = append(lines, r.theme.Media.Render("▶ pratinjau: "+m.VideoURL))
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) media(m model.Message) string {
	lines := MediaLines(m)
	if len(lines) == 0 {
		return ""
	}
	return r.theme.Media.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// MediaLines describes the media a message carries, one line per file.
func MediaLines(m model.Message) []string {
	var lines []string
	if m.ImageURL != "" {
		line := "🖼  " + m.ImageURL
		if m.ImageStyle != "" {
			line += " (" + m.ImageStyle + ")"
		}
		lines = append(lines, line)
	}
	if m.VideoURL != "" {
		lines = append(lines, "🎬 "+m.VideoURL)
	}
	if m.AudioURL != "" {
		lines = append(lines, "🔊 "+m.AudioURL)
	}
	if d := m.Document; d != nil {
		line := fmt.Sprintf("📄 %s (%s)", d.Filename, strings.ToUpper(d.Format))
		if d.Path != "" {
			line += " " + d.Path
		}
		lines = append(lines, line)
	}
	return lines
}
