// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the nexus TUI and
// REPL.
//
// Colors are Lip Gloss AdaptiveColors so one palette serves dark and light
// terminals. NewTheme resolves the configured theme ("dark", "light" or
// "auto") against the terminal background via termenv and builds every
// style once:
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	header := theme.Header.Render("NEXUS")
package styles
