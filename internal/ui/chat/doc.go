// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea front end for the Nexus timeline.
//
// The model never owns conversation state. It renders the orchestrator's
// timeline and forwards input to it:
//
//	orch := orchestrator.New(deps)
//	m := chat.New(ctx, orch, chat.Options{Theme: styles.NewTheme("dark")})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	_, err := p.Run()
//
// Timeline events and orchestrator effects arrive on a single wake-up
// channel. Each wake-up re-reads the filtered view, so bursts of progress
// updates collapse into one redraw.
//
// Submissions run as tea.Cmds because a generation can take minutes; the
// input stays live and a second submission is answered with the busy
// notice.
//
// Overlays:
//   - Help (F1 or /help) shows the grouped command list
//   - Terminal (Ctrl+T or /terminal) runs the simulated shell
package chat
