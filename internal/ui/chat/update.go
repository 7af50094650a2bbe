// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/orchestrator"
	"github.com/ipapadil7-star/nexus/internal/terminal"
)

// chrome is the number of rows taken by header, input and status bar.
const chrome = 5

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case refreshMsg:
		return m.handleRefresh()

	case submitDoneMsg:
		m.notice = noticeFor(msg.err)
		if msg.err != nil && !errors.Is(msg.err, orchestrator.ErrBusy) {
			m.logger.Debug("submission failed", zap.Error(msg.err))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if streaming(m.orch.View()) {
			m.refreshContent()
		}
		return m, cmd

	case tea.KeyMsg:
		switch m.overlay {
		case overlayHelp:
			return m.handleHelpKey(msg)
		case overlayTerminal:
			return m.handleTerminalKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	bodyHeight := max(msg.Height-chrome, 3)
	if !m.ready {
		m.viewport = viewport.New(msg.Width, bodyHeight)
		m.helpView = viewport.New(msg.Width-4, bodyHeight-2)
		m.ready = true
	} else {
		m.viewport.Width, m.viewport.Height = msg.Width, bodyHeight
		m.helpView.Width, m.helpView.Height = msg.Width-4, bodyHeight-2
	}
	m.input.Width = msg.Width - 4
	m.termInput.Width = msg.Width - 8
	m.renderer.setWidth(msg.Width - 2)
	m.refreshContent()
	m.viewport.GotoBottom()
	return m
}

// handleRefresh applies queued effects and redraws the timeline.
func (m Model) handleRefresh() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.bridge.wait(m.ctx)}
	for _, e := range m.bridge.drain() {
		switch e.Kind {
		case orchestrator.EffectHelp:
			m.openHelp(e.Text)
		case orchestrator.EffectTerminal:
			cmds = append(cmds, m.openTerminal())
		case orchestrator.EffectFilter:
			if e.Text == "" {
				m.notice = "Filter gaya dimatikan."
			} else {
				m.notice = "Menampilkan gaya " + e.Text + " saja."
			}
		case orchestrator.EffectQuit:
			return m, tea.Quit
		}
	}
	m.refreshContent()
	return m, tea.Batch(cmds...)
}

// refreshContent re-reads the view and keeps the viewport pinned to the
// bottom when it already was.
func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderer.timeline(m.orch.View(), m.spinner.View()))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, orchestrator.ErrBusy):
		return orchestrator.BusyMessage
	default:
		return apperr.Classify(err).Message
	}
}

// =============================================================================
// MAIN KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.openHelp(m.orch.Registry().HelpText())
		return m, nil

	case key.Matches(msg, m.keys.Terminal):
		return m, m.openTerminal()

	case key.Matches(msg, m.keys.Retry):
		m.notice = ""
		return m, m.retryCmd()

	case key.Matches(msg, m.keys.Complete):
		m.complete()
		return m, nil

	case key.Matches(msg, m.keys.Close):
		if m.completions.Visible {
			m.completions.Clear()
		} else {
			m.notice = ""
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.completions.Visible {
			m.completions.Prev()
		} else {
			m.viewport.LineUp(1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.completions.Visible {
			m.completions.Next()
		} else {
			m.viewport.LineDown(1)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.completions.Visible && m.acceptCompletion() {
			return m, nil
		}
		return m, m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.updateCompletions()
	return m, cmd
}

// submit clears the input and hands the text to the orchestrator.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()
	m.completions.Clear()
	m.notice = ""
	m.viewport.GotoBottom()

	orch, ctx := m.orch, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{err: orch.Submit(ctx, text)}
	}
}

func (m *Model) retryCmd() tea.Cmd {
	orch, ctx := m.orch, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{err: orch.Retry(ctx)}
	}
}

// =============================================================================
// COMPLETION
// =============================================================================

// updateCompletions refreshes suggestions while a command is being typed.
func (m *Model) updateCompletions() {
	value := m.input.Value()
	if !strings.HasPrefix(value, "/") {
		m.completions.Clear()
		return
	}
	m.completions.Update(m.completer.Complete(value))
}

// complete accepts the selection, or opens the list when it is hidden.
func (m *Model) complete() {
	if !m.completions.Visible {
		m.updateCompletions()
		if len(m.completions.Completions) != 1 {
			return
		}
	}
	m.acceptCompletion()
}

// acceptCompletion writes the selected suggestion into the input. It
// reports false when there was nothing new to write.
func (m *Model) acceptCompletion() bool {
	value := m.completions.Accept()
	m.completions.Clear()
	if value == "" {
		return false
	}
	next := applyCompletion(m.input.Value(), value)
	if next == m.input.Value() {
		return false
	}
	m.input.SetValue(next)
	m.input.CursorEnd()
	return true
}

// applyCompletion replaces the token being typed with value and leaves a
// trailing space for the next token.
func applyCompletion(input, value string) string {
	if strings.HasSuffix(input, " ") {
		trimmed := strings.TrimRight(input, " ")
		if trimmed[strings.LastIndex(trimmed, " ")+1:] == value {
			return input
		}
		return input + value + " "
	}
	cut := strings.LastIndex(input, " ") + 1
	if input[cut:] == value {
		return input
	}
	return input[:cut] + value + " "
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m *Model) openHelp(text string) {
	m.overlay = overlayHelp
	m.helpView.SetContent(m.renderer.markdown("\x00help", text))
	m.helpView.GotoTop()
}

func (m *Model) openTerminal() tea.Cmd {
	m.overlay = overlayTerminal
	if len(m.termLines) == 0 {
		m.termLines = []string{terminal.Welcome}
	}
	m.histIdx = -1
	m.input.Blur()
	return m.termInput.Focus()
}

func (m *Model) closeOverlay() tea.Cmd {
	m.overlay = overlayNone
	m.termInput.Blur()
	return m.input.Focus()
}

func (m Model) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Help), msg.String() == "q":
		return m, m.closeOverlay()
	}
	var cmd tea.Cmd
	m.helpView, cmd = m.helpView.Update(msg)
	return m, cmd
}

func (m Model) handleTerminalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Close):
		return m, m.closeOverlay()

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		history := m.shell.History()
		if len(history) == 0 {
			return m, nil
		}
		if key.Matches(msg, m.keys.Up) {
			m.histIdx = min(m.histIdx+1, len(history)-1)
		} else {
			m.histIdx--
		}
		if m.histIdx < 0 {
			m.histIdx = -1
			m.termInput.Reset()
		} else {
			m.termInput.SetValue(history[m.histIdx])
			m.termInput.CursorEnd()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		res := m.shell.Exec(m.termInput.Value())
		m.termInput.Reset()
		m.histIdx = -1
		if res.Clear {
			m.termLines = nil
		} else {
			m.termLines = append(m.termLines, res.Output...)
		}
		if res.Exit {
			m.termLines = nil
			return m, m.closeOverlay()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.termInput, cmd = m.termInput.Update(msg)
	return m, cmd
}

// streaming reports whether any visible message is still in flight.
func streaming(msgs []model.Message) bool {
	for _, m := range msgs {
		if m.IsPlaceholder() && !m.GenerationStatus.Terminal() {
			return true
		}
	}
	return false
}
