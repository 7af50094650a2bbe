// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Magenta - Brand color, headers, the NEXUS label
var Magenta = lipgloss.AdaptiveColor{Light: "#A21CAF", Dark: "#E879F9"}

// Cyan - User messages, commands, completion matches
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Purple - Comic panels and the style selector
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Emerald - Completed generations
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Pending confirmations, warnings
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

// SurfaceDim - Header and status bar background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextSecondary - Labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - Hints, timestamps, media paths
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// QUICK RENDERERS
// =============================================================================

var (
	successStyle = lipgloss.NewStyle().Foreground(Emerald)
	errorStyle   = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(Amber)
	infoStyle    = lipgloss.NewStyle().Foreground(Cyan)
	mutedStyle   = lipgloss.NewStyle().Foreground(TextMuted)
)

// RenderSuccess renders a success line.
func RenderSuccess(message string) string { return successStyle.Render("✓ " + message) }

// RenderError renders an error line.
func RenderError(message string) string { return errorStyle.Render("✗ " + message) }

// RenderWarning renders a warning line.
func RenderWarning(message string) string { return warningStyle.Render("! " + message) }

// RenderInfo renders an informational line.
func RenderInfo(message string) string { return infoStyle.Render(message) }

// RenderMuted renders de-emphasised text.
func RenderMuted(message string) string { return mutedStyle.Render(message) }
