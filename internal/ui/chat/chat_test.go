// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ipapadil7-star/nexus/internal/backend/backendtest"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/generate"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/orchestrator"
	"github.com/ipapadil7-star/nexus/internal/session"
	"github.com/ipapadil7-star/nexus/internal/storage"
	"github.com/ipapadil7-star/nexus/internal/ui/styles"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// =============================================================================
// HARNESS
// =============================================================================

func newOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	dir := t.TempDir()
	fake := backendtest.New()
	media, err := storage.NewMediaStore(dir)
	require.NoError(t, err)
	transcripts, err := storage.NewTranscriptStore(dir)
	require.NoError(t, err)

	sessions := session.NewManager(fake, session.DefaultConfig())
	reg := commands.NewRegistry(nil)
	generate.Register(reg, generate.Deps{Backend: fake, Sessions: sessions, Media: media, Previews: media})
	return orchestrator.New(orchestrator.Deps{
		Timeline:    model.NewTimeline(),
		Registry:    reg,
		Sessions:    sessions,
		Transcripts: transcripts,
	})
}

func newModel(t *testing.T) (Model, *orchestrator.Orchestrator) {
	t.Helper()
	orch := newOrchestrator(t)
	m := New(context.Background(), orch, Options{Theme: styles.NewTheme("dark"), GlamourStyle: "notty"})
	t.Cleanup(m.Close)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), orch
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// refresh simulates the wake-up the bridge delivers after a change.
func refresh(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(refreshMsg{})
	return next.(Model), cmd
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestApplyCompletion(t *testing.T) {
	tests := []struct {
		input, value, want string
	}{
		{"/gam", "/gambar", "/gambar "},
		{"/gambar naga --st", "--style", "/gambar naga --style "},
		{"/gambar naga --style ", "anime", "/gambar naga --style anime "},
		{"/gambar naga --style ani", "anime", "/gambar naga --style anime "},
		{"/help", "/help", "/help"},
		{"/help ", "/help", "/help "},
		{"/help  ", "/help", "/help  "},
		{"/gambar ", "--style", "/gambar --style "},
		{"/gambar naga --style anime ", "anime", "/gambar naga --style anime "},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, applyCompletion(tt.input, tt.value))
		})
	}
}

func TestTyping_ShowsAndAcceptsSuggestions(t *testing.T) {
	m, _ := newModel(t)
	m = typeText(t, m, "/hel")
	require.True(t, m.completions.Visible)
	assert.Equal(t, "/help", m.completions.Accept())
	assert.Contains(t, m.View(), "/help")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "/help ", m.input.Value())
	assert.False(t, m.completions.Visible)
}

func TestTyping_PlainTextHasNoSuggestions(t *testing.T) {
	m, _ := newModel(t)
	m = typeText(t, m, "halo")
	assert.False(t, m.completions.Visible)
}

func TestEscape_HidesSuggestions(t *testing.T) {
	m, _ := newModel(t)
	m = typeText(t, m, "/g")
	require.True(t, m.completions.Visible)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.completions.Visible)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_RunsThroughOrchestrator(t *testing.T) {
	m, orch := newModel(t)
	m = typeText(t, m, "/gambar naga")
	m.completions.Clear()

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	done, ok := cmd().(submitDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	msgs := orch.Timeline().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.StatusComplete, msgs[1].GenerationStatus)

	m, _ = refresh(t, m)
	view := m.viewport.View()
	assert.Contains(t, view, "/gambar naga")
	assert.Contains(t, view, "🖼")
}

func TestSubmit_EmptyInputDoesNothing(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestSubmitDone_ShowsNotice(t *testing.T) {
	m, _ := newModel(t)
	next, _ := m.Update(submitDoneMsg{err: orchestrator.ErrBusy})
	m = next.(Model)
	assert.Equal(t, orchestrator.BusyMessage, m.notice)
	assert.Contains(t, m.View(), orchestrator.BusyMessage)

	next, _ = m.Update(submitDoneMsg{})
	assert.Empty(t, next.(Model).notice)
}

func TestRetryKey_ReportsNothingToRetry(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	done := cmd().(submitDoneMsg)
	require.Error(t, done.err)
	assert.Equal(t, "Nggak ada yang perlu diulang.", noticeFor(done.err))
}

// =============================================================================
// EFFECTS AND OVERLAYS
// =============================================================================

func TestHelpCommand_OpensOverlay(t *testing.T) {
	m, orch := newModel(t)
	require.NoError(t, orch.Submit(context.Background(), "/help"))

	m, _ = refresh(t, m)
	assert.Equal(t, overlayHelp, m.overlay)
	assert.Contains(t, m.View(), "Bantuan")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, overlayNone, m.overlay)
}

func TestHelpKey_OpensOverlay(t *testing.T) {
	m, _ := newModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, overlayHelp, m.overlay)
}

func TestQuitEffect(t *testing.T) {
	m, orch := newModel(t)
	require.NoError(t, orch.Submit(context.Background(), "/keluar"))

	_, cmd := refresh(t, m)
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestFilterEffect_SetsNotice(t *testing.T) {
	m, orch := newModel(t)
	require.NoError(t, orch.Submit(context.Background(), "/filter anime"))
	m, _ = refresh(t, m)
	assert.Equal(t, "Menampilkan gaya anime saja.", m.notice)
	assert.Contains(t, m.header(), "filter: anime")
}

func TestTerminalOverlay(t *testing.T) {
	m, _ := newModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	require.Equal(t, overlayTerminal, m.overlay)
	assert.Contains(t, m.View(), "Terminal")

	m = typeText(t, m, "whoami")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.termLines[len(m.termLines)-1], "Penguasa di sini")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "whoami", m.termInput.Value())

	m.termInput.SetValue("exit")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, overlayNone, m.overlay)
	assert.Empty(t, m.termLines)
}

// =============================================================================
// RENDERING
// =============================================================================

func TestRenderer_Messages(t *testing.T) {
	r := newRenderer(styles.NewTheme("dark"), "notty")
	r.setWidth(80)
	now := time.Date(2025, 1, 2, 15, 4, 0, 0, time.UTC)

	t.Run("user with attachment", func(t *testing.T) {
		out := r.message(model.Message{ID: "u", Role: model.RoleUser, Text: "lihat ini", Attachment: "foto.png", CreatedAt: now}, "*")
		assert.Contains(t, out, "User")
		assert.Contains(t, out, "15:04")
		assert.Contains(t, out, "📎 foto.png")
	})

	t.Run("generating with progress", func(t *testing.T) {
		out := r.message(model.Message{
			ID: "g", Role: model.RoleModel,
			GenerationStatus: model.StatusGenerating, GenerationText: "Merender video...",
			GenerationProgress: 40, VideoURL: "/tmp/preview.png",
		}, "*")
		assert.Contains(t, out, "Merender video...")
		assert.Contains(t, out, "40%")
		assert.Contains(t, out, "pratinjau")
	})

	t.Run("error offers retry", func(t *testing.T) {
		out := r.message(model.Message{ID: "e", Role: model.RoleModel, GenerationStatus: model.StatusError, Text: "Gagal.", SourceText: "/gambar x"}, "*")
		assert.Contains(t, out, "✗ Gagal.")
		assert.Contains(t, out, retryHint)

		out = r.message(model.Message{ID: "e2", Role: model.RoleModel, GenerationStatus: model.StatusError, Text: "Gagal."}, "*")
		assert.NotContains(t, out, retryHint)
	})

	t.Run("comic panel with media", func(t *testing.T) {
		out := r.message(model.Message{
			ID: "p", Role: model.RoleModel, GenerationStatus: model.StatusComplete,
			Text: "Sang pahlawan tiba.", ImageURL: "/tmp/p1.png", ImageStyle: "anime",
			IsComicPanel: true, PanelNumber: 1,
		}, "*")
		assert.Contains(t, out, "Panel #1")
		assert.Contains(t, out, "Sang pahlawan tiba.")
		assert.Contains(t, out, "/tmp/p1.png (anime)")
	})

	t.Run("document", func(t *testing.T) {
		out := r.message(model.Message{
			ID: "d", Role: model.RoleModel, GenerationStatus: model.StatusComplete,
			Document: &model.DocumentInfo{Format: "pdf", Filename: "laporan.pdf", Path: "/tmp/laporan.pdf"},
		}, "*")
		assert.Contains(t, out, "laporan.pdf (PDF) /tmp/laporan.pdf")
	})
}

func TestRenderer_EmptyTimeline(t *testing.T) {
	r := newRenderer(styles.NewTheme("dark"), "notty")
	assert.Contains(t, r.timeline(nil, "*"), "/help")
}

func TestRenderer_CachesMarkdown(t *testing.T) {
	r := newRenderer(styles.NewTheme("dark"), "notty")
	first := r.markdown("a", "**tebal**")
	assert.Equal(t, first, r.markdown("a", "**tebal**"))
	require.Contains(t, r.cache, "a")

	r.forget([]model.Message{{ID: "b"}})
	assert.NotContains(t, r.cache, "a")
}

func TestRenderer_ForgetAfterClearWithMoreMessages(t *testing.T) {
	r := newRenderer(styles.NewTheme("dark"), "notty")
	r.markdown("lama", "pesan lama")

	// A cleared timeline that grew past the cache size still drops stale ids.
	r.markdown("baru1", "satu")
	r.forget([]model.Message{{ID: "baru1"}, {ID: "baru2"}, {ID: "baru3"}})
	assert.NotContains(t, r.cache, "lama")
	assert.Contains(t, r.cache, "baru1")
}

func TestHeaderFlags(t *testing.T) {
	assert.Empty(t, headerFlags(session.Status{}))
	assert.Equal(t, []string{"komik anime · 3 panel", "menunggu /ya atau /tidak"},
		headerFlags(session.Status{ComicActive: true, ComicStyle: "anime", PanelCount: 3, Confirming: true}))
	assert.Equal(t, []string{"pilih gaya komik"}, headerFlags(session.Status{PendingComic: true}))
}
