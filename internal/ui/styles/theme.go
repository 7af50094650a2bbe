// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS BAR
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	StatusBar      lipgloss.Style
	StatusKey      lipgloss.Style
	StatusWarn     lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel   lipgloss.Style
	ModelLabel  lipgloss.Style
	UserText    lipgloss.Style
	Generating  lipgloss.Style
	ErrorText   lipgloss.Style
	Media       lipgloss.Style
	Selector    lipgloss.Style
	PanelBadge  lipgloss.Style
	Timestamp   lipgloss.Style
	ProgressBar lipgloss.Style

	// ==========================================================================
	// INPUT, COMPLETION AND OVERLAYS
	// ==========================================================================

	InputPrompt        lipgloss.Style
	Attachment         lipgloss.Style
	CompletionPopup    lipgloss.Style
	CompletionItem     lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionUsage    lipgloss.Style
	Overlay            lipgloss.Style
	OverlayTitle       lipgloss.Style
	TerminalText       lipgloss.Style
}

// NewTheme creates a theme for mode ("dark", "light" or "auto").
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()
	isDark := true
	switch strings.ToLower(mode) {
	case "light":
		isDark = false
	case "auto":
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Magenta).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Magenta)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Background(SurfaceDim).Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.StatusWarn = lipgloss.NewStyle().Foreground(Amber).Bold(true)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ModelLabel = lipgloss.NewStyle().Bold(true).Foreground(Magenta)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Generating = lipgloss.NewStyle().Foreground(Amber).Italic(true)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose)
	t.Media = lipgloss.NewStyle().Foreground(Emerald)
	t.Selector = lipgloss.NewStyle().
		Foreground(Purple).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.PanelBadge = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.ProgressBar = lipgloss.NewStyle().Foreground(Cyan)

	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Magenta)
	t.Attachment = lipgloss.NewStyle().Foreground(Emerald).Italic(true)
	t.CompletionPopup = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.CompletionItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.CompletionSelected = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.CompletionUsage = lipgloss.NewStyle().Foreground(TextMuted)
	t.Overlay = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Magenta).
		Padding(0, 1)
	t.OverlayTitle = lipgloss.NewStyle().Bold(true).Foreground(Magenta)
	t.TerminalText = lipgloss.NewStyle().Foreground(Emerald)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// RenderProgressBar draws a bar of width cells for percent (0-100).
func RenderProgressBar(width, percent int) string {
	if width < 3 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	inner := width - 2
	filled := inner * percent / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", inner-filled) + "]"
}

// PadRight pads s with spaces to width display cells.
func PadRight(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
