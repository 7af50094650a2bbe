// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/backend/backendtest"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/generate"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/session"
	"github.com/ipapadil7-star/nexus/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// =============================================================================
// HARNESS
// =============================================================================

type recordingMetrics struct {
	mu       sync.Mutex
	started  []string
	finished []model.GenerationStatus
	rejected int
}

func (m *recordingMetrics) GenerationStarted(cmd string) {
	m.mu.Lock()
	m.started = append(m.started, cmd)
	m.mu.Unlock()
}

func (m *recordingMetrics) GenerationFinished(_ string, s model.GenerationStatus, _ apperr.Category, _ time.Duration) {
	m.mu.Lock()
	m.finished = append(m.finished, s)
	m.mu.Unlock()
}

func (m *recordingMetrics) SubmissionRejected() {
	m.mu.Lock()
	m.rejected++
	m.mu.Unlock()
}

type harness struct {
	o       *Orchestrator
	fake    *backendtest.Fake
	tl      *model.Timeline
	metrics *recordingMetrics
	dir     string
	effects []Effect
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	fake := backendtest.New()
	media, err := storage.NewMediaStore(dir)
	require.NoError(t, err)
	transcripts, err := storage.NewTranscriptStore(dir)
	require.NoError(t, err)

	sessions := session.NewManager(fake, session.DefaultConfig())
	reg := commands.NewRegistry(nil)
	handlers := generate.Register(reg, generate.Deps{Backend: fake, Sessions: sessions, Media: media, Previews: media})

	h := &harness{fake: fake, tl: model.NewTimeline(), metrics: &recordingMetrics{}, dir: dir}
	h.o = New(Deps{
		Timeline:    h.tl,
		Registry:    reg,
		Sessions:    sessions,
		Transcripts: transcripts,
		Metrics:     h.metrics,
		Panels:      handlers,
	})
	return h
}

func (h *harness) withEffects() *harness {
	h.o.OnEffect(func(e Effect) { h.effects = append(h.effects, e) })
	return h
}

func (h *harness) submit(t *testing.T, input string) {
	t.Helper()
	require.NoError(t, h.o.Submit(context.Background(), input))
}

func (h *harness) last() model.Message {
	msgs := h.tl.Messages()
	return msgs[len(msgs)-1]
}

// =============================================================================
// GENERATION LIFECYCLE
// =============================================================================

func TestSubmit_GenerationCompletes(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/gambar naga merah --style cyberpunk")

	msgs := h.tl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "/gambar naga merah --style cyberpunk", msgs[0].Text)

	ph := msgs[1]
	assert.Equal(t, model.StatusComplete, ph.GenerationStatus)
	assert.Equal(t, model.GenImage, ph.GenerationType)
	assert.Equal(t, "cyberpunk", ph.ImageStyle)
	assert.FileExists(t, ph.ImageURL)

	assert.Equal(t, []string{"/gambar"}, h.metrics.started)
	assert.Equal(t, []model.GenerationStatus{model.StatusComplete}, h.metrics.finished)
}

func TestSubmit_InvalidFlagFailsPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/video kota --res 4k")

	ph := h.last()
	assert.Equal(t, model.StatusError, ph.GenerationStatus)
	assert.Equal(t, "Resolusi video tidak valid. Pilih '720p' atau '1080p'.", ph.Text)
	assert.Equal(t, "/video kota --res 4k", ph.SourceText)
	assert.Empty(t, h.fake.VideoRequests())
}

func TestSubmit_BackendErrorIsClassified(t *testing.T) {
	h := newHarness(t)
	h.fake.ImageErr = errors.New("googleapi: Error 429: Too Many Requests")
	h.submit(t, "/gambar kucing")

	ph := h.last()
	assert.Equal(t, model.StatusError, ph.GenerationStatus)
	assert.Equal(t, "Kebanyakan permintaan. Tunggu sebentar lalu coba lagi.", ph.Text)
}

func TestSubmit_EmptyInputIgnored(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "   ")
	assert.Zero(t, h.tl.Len())
}

func TestSubmit_BusyRejected(t *testing.T) {
	h := newHarness(t)
	h.fake.Block = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.o.Submit(context.Background(), "halo") }()
	require.Eventually(t, h.o.Busy, time.Second, 5*time.Millisecond)

	err := h.o.Submit(context.Background(), "/gambar kucing")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, h.metrics.rejected)

	// Local commands still run while a generation is in flight.
	require.NoError(t, h.o.Submit(context.Background(), "/persona"))

	close(h.fake.Block)
	require.NoError(t, <-done)
	assert.False(t, h.o.Busy())
}

func TestSubmit_DroppedCompletionStillFinishes(t *testing.T) {
	h := newHarness(t)
	h.fake.Block = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.o.Submit(context.Background(), "/gambar kucing") }()
	require.Eventually(t, func() bool {
		for _, c := range h.fake.Calls() {
			if c == "GenerateImage" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	h.tl.Clear()
	close(h.fake.Block)
	require.NoError(t, <-done)

	assert.Zero(t, h.tl.Len())
	h.metrics.mu.Lock()
	defer h.metrics.mu.Unlock()
	assert.Len(t, h.metrics.started, 1)
	assert.Equal(t, []model.GenerationStatus{model.StatusError}, h.metrics.finished)
}

// =============================================================================
// CHAT AND ROUTING
// =============================================================================

func TestSubmit_ChatFallback(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "apa kabar?")
	h.submit(t, "/entahlah sesuatu")

	chats := h.fake.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, []string{"apa kabar?", "/entahlah sesuatu"}, chats[0].Sent())
	assert.Equal(t, session.PersonaNexus.Instruction(), chats[0].Opts.System)

	reply := h.last()
	assert.Equal(t, "halo juga", reply.Text)
	assert.Equal(t, model.StatusComplete, reply.GenerationStatus)
	assert.Equal(t, model.GenText, reply.GenerationType)
}

func TestSubmit_AttachmentStaged(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "foto.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	h.submit(t, "/lampirkan "+path)
	assert.Equal(t, path, h.o.StagedAttachment())

	h.submit(t, "/dengarkan")
	assert.Empty(t, h.o.StagedAttachment())

	msgs := h.tl.Messages()
	user := msgs[len(msgs)-2]
	assert.Equal(t, "foto.png", user.Attachment)
	assert.Equal(t, model.StatusComplete, h.last().GenerationStatus)
	assert.NotEmpty(t, h.last().AudioURL)
}

func TestSubmit_UnreadableAttachment(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "hilang.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
	h.submit(t, "/lampirkan "+path)
	require.NoError(t, os.Remove(path))

	h.submit(t, "jelaskan gambar ini")

	last := h.last()
	assert.Equal(t, model.StatusError, last.GenerationStatus)
	assert.Empty(t, last.GenerationType)
	assert.Equal(t, "jelaskan gambar ini", last.SourceText)
	assert.Empty(t, h.fake.Chats())
}

func TestAttach_Rejects(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/lampirkan")
	assert.Contains(t, h.last().Text, "Kasih path file-nya")

	txt := filepath.Join(h.dir, "catatan.exe")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	h.submit(t, "/lampirkan "+txt)
	assert.Contains(t, h.last().Text, "tidak didukung")
	assert.Empty(t, h.o.StagedAttachment())
}

// =============================================================================
// RETRY
// =============================================================================

func TestRetry_ResubmitsSource(t *testing.T) {
	h := newHarness(t)
	h.fake.ChatErr = errors.New("connection refused")
	h.submit(t, "halo")
	require.Equal(t, model.StatusError, h.last().GenerationStatus)

	h.fake.ChatErr = nil
	h.submit(t, "/ulang")

	msgs := h.tl.Messages()
	var texts []string
	for _, m := range msgs {
		texts = append(texts, m.Text)
		assert.NotEqual(t, model.StatusError, m.GenerationStatus)
	}
	assert.Equal(t, []string{"halo", "halo", "halo juga"}, texts)
}

func TestRetry_ErrorAlreadyAnswered(t *testing.T) {
	h := newHarness(t)
	h.fake.ChatErr = errors.New("connection refused")
	h.submit(t, "halo")
	h.fake.ChatErr = nil
	h.submit(t, "apa kabar?")
	n := h.tl.Len()

	h.submit(t, "/ulang")
	assert.Equal(t, "Nggak ada yang perlu diulang.", h.last().Text)
	assert.Equal(t, n+2, h.tl.Len(), "earlier exchanges are kept")
	var sent []string
	for _, c := range h.fake.Chats() {
		sent = append(sent, c.Sent()...)
	}
	assert.Equal(t, []string{"halo", "apa kabar?"}, sent)
}

func TestRetry_NothingToRetry(t *testing.T) {
	h := newHarness(t)
	err := h.o.Retry(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.BadRequest, apperr.Classify(err).Category)

	h.submit(t, "/ulang")
	assert.Equal(t, "Nggak ada yang perlu diulang.", h.last().Text)
}

// =============================================================================
// CONFIRMATIONS
// =============================================================================

func TestClear_Confirmed(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "halo")
	h.submit(t, "/bersihkan")
	assert.Contains(t, h.last().Text, "/ya atau /tidak")

	h.submit(t, "/ya")
	assert.Zero(t, h.tl.Len())

	h.submit(t, "lagi")
	assert.Len(t, h.fake.Chats(), 2)
}

func TestClear_Cancelled(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/bersihkan")
	h.submit(t, "/tidak")
	assert.Equal(t, "Oke, dibatalkan.", h.last().Text)

	h.submit(t, "/ya")
	assert.Equal(t, "Nggak ada yang perlu dikonfirmasi.", h.last().Text)
}

func TestConfirmation_SecondRequestRejected(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/bersihkan")
	h.submit(t, "/persona akbar")
	assert.Equal(t, pendingReply, h.last().Text)

	pending, ok := h.o.Sessions().PendingConfirmation()
	require.True(t, ok)
	assert.Equal(t, session.ConfirmClearChat, pending.Kind)
}

func TestPersona_ChangeAfterConfirm(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "halo")
	h.submit(t, "/persona akbar")
	h.submit(t, "/ya")

	assert.Equal(t, session.PersonaAkbar, h.o.Sessions().Persona())
	require.Equal(t, 1, h.tl.Len())
	assert.Equal(t, "Persona diganti ke AKBAR AI.", h.last().Text)

	h.submit(t, "siapa kamu?")
	chats := h.fake.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, session.PersonaAkbar.Instruction(), chats[1].Opts.System)
}

func TestPersona_Unknown(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/persona bajak-laut")
	assert.Contains(t, h.last().Text, "tidak dikenal")
	_, ok := h.o.Sessions().PendingConfirmation()
	assert.False(t, ok)
}

// =============================================================================
// MACROS
// =============================================================================

func TestMacro_AddExpandOverwriteDelete(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/perintah tambah kucing /gambar kucing lucu --style anime")
	assert.Equal(t, "Perintah /kucing tersimpan.", h.last().Text)

	h.submit(t, "/kucing")
	reqs := h.fake.ImageRequests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, "kucing lucu")
	assert.Equal(t, "anime", h.last().ImageStyle)

	h.submit(t, "/perintah tambah kucing /gambar kucing galak")
	assert.Contains(t, h.last().Text, "Timpa")
	h.submit(t, "/ya")
	m, ok := h.o.Registry().Macro("kucing")
	require.True(t, ok)
	assert.Equal(t, "/gambar kucing galak", m.Text)

	h.submit(t, "/perintah hapus kucing")
	h.submit(t, "/ya")
	_, ok = h.o.Registry().Macro("kucing")
	assert.False(t, ok)
}

func TestMacro_DeleteUnknownNamesIt(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/perintah hapus foo")
	assert.Equal(t, "Perintah /foo tidak ditemukan.", h.last().Text)
	_, ok := h.o.Sessions().PendingConfirmation()
	assert.False(t, ok)
}

func TestMacro_CannotShadowBuiltin(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/perintah tambah gambar halo")
	assert.Equal(t, "/gambar sudah dipakai perintah bawaan.", h.last().Text)
}

func TestMacro_ExportImport(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/perintah tambah pagi selamat pagi dunia")
	file := filepath.Join(h.dir, "macros.yaml")
	h.submit(t, "/perintah ekspor "+file)
	assert.FileExists(t, file)

	other := newHarness(t)
	other.submit(t, "/perintah impor "+file)
	assert.Equal(t, "1 perintah diimpor.", other.last().Text)
	m, ok := other.o.Registry().Macro("pagi")
	require.True(t, ok)
	assert.Equal(t, "selamat pagi dunia", m.Text)

	other.submit(t, "/perintah daftar")
	assert.Contains(t, other.last().Text, "`/pagi`")
}

// =============================================================================
// COMIC
// =============================================================================

func TestComic_FullFlow(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/komik kucing detektif")
	sel := h.last()
	assert.True(t, sel.IsStyleSelector)
	assert.Contains(t, sel.Text, "Gaya apa yang lo mau buat komik ini?")

	h.submit(t, "/gaya noir")
	p1 := h.last()
	assert.True(t, p1.IsComicPanel)
	assert.Equal(t, 1, p1.PanelNumber)
	assert.Equal(t, model.StatusComplete, p1.GenerationStatus)

	h.submit(t, "lanjutkan kejar pencurinya")
	p2 := h.last()
	assert.Equal(t, 2, p2.PanelNumber)
	assert.Equal(t, "Panel 2: lanjutkan kejar pencurinya", p2.Text)

	h.submit(t, "/panel 1 Malam itu hujan.")
	got, ok := h.tl.Get(p1.ID)
	require.True(t, ok)
	assert.Equal(t, "Malam itu hujan.", got.Text)

	h.submit(t, "/komik lagi")
	assert.Equal(t, generate.ComicActiveMessage, h.last().Text)

	h.submit(t, "/tamat")
	assert.False(t, h.o.Sessions().ComicActive())

	// Without a comic the keyword is plain chat.
	h.submit(t, "lanjut")
	require.Len(t, h.fake.Chats(), 1)
	assert.Equal(t, []string{"lanjut"}, h.fake.Chats()[0].Sent())
}

func TestComic_RedrawPanelImage(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/komik kucing detektif")
	h.submit(t, "/gaya noir")
	p1 := h.last()
	require.True(t, p1.IsComicPanel)
	require.NotEmpty(t, p1.ComicImagePrompt)
	before := len(h.fake.ImageRequests())

	h.fake.Image = &backend.Media{MIMEType: "image/png", Data: []byte("png-baru")}
	h.submit(t, "/panel 1 Hujan turun deras. --gambar")
	assert.Equal(t, "Gambar panel #1 digambar ulang.", h.last().Text)

	reqs := h.fake.ImageRequests()
	require.Len(t, reqs, before+1)
	assert.Equal(t, p1.ComicImagePrompt, reqs[len(reqs)-1].Prompt)

	got, ok := h.tl.Get(p1.ID)
	require.True(t, ok)
	assert.Equal(t, "Hujan turun deras.", got.Text)
	assert.NotEqual(t, p1.ImageURL, got.ImageURL)
	data, err := os.ReadFile(got.ImageURL)
	require.NoError(t, err)
	assert.Equal(t, "png-baru", string(data))
	assert.Equal(t, model.StatusComplete, got.GenerationStatus)
}

func TestComic_RedrawPanelFailureKeepsImage(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/komik kucing detektif")
	h.submit(t, "/gaya noir")
	p1 := h.last()

	h.fake.ImageErr = errors.New("response blocked: SAFETY")
	h.submit(t, "/panel 1 --gambar")
	assert.Equal(t, apperr.Classify(h.fake.ImageErr).Message, h.last().Text)

	got, _ := h.tl.Get(p1.ID)
	assert.Equal(t, p1.ImageURL, got.ImageURL)
	assert.False(t, h.o.Busy())
}

func TestComic_PanelMissing(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/panel 3 teks")
	assert.Equal(t, "Panel #3 belum ada.", h.last().Text)
	h.submit(t, "/panel x")
	assert.Equal(t, panelUsage, h.last().Text)
	h.submit(t, "/panel 1")
	assert.Equal(t, "Narasi panel #1 tidak boleh kosong.", h.last().Text)
}

// =============================================================================
// VIEW AND EFFECTS
// =============================================================================

func TestFilter_View(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/gambar a --style anime")
	h.submit(t, "/gambar b --style cyberpunk")
	h.submit(t, "/filter anime")
	assert.Equal(t, "anime", h.o.Filter())

	for _, m := range h.o.View() {
		if m.ImageURL != "" {
			assert.Equal(t, "anime", m.ImageStyle)
		}
	}
	assert.Less(t, len(h.o.View()), h.tl.Len())

	h.submit(t, "/filter off")
	assert.Empty(t, h.o.Filter())
	assert.Len(t, h.o.View(), h.tl.Len())

	h.submit(t, "/filter klasik")
	assert.Contains(t, h.last().Text, "tidak dikenal")
}

func TestEffects(t *testing.T) {
	h := newHarness(t).withEffects()
	h.submit(t, "/help")
	h.submit(t, "/terminal")
	h.submit(t, "/keluar")

	require.Len(t, h.effects, 3)
	assert.Equal(t, EffectHelp, h.effects[0].Kind)
	assert.Contains(t, h.effects[0].Text, "/gambar")
	assert.Contains(t, h.effects[0].Text, "/perintah")
	assert.Equal(t, EffectTerminal, h.effects[1].Kind)
	assert.Equal(t, EffectQuit, h.effects[2].Kind)
}

func TestHelp_WithoutHandlerLandsInTimeline(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/bantuan")
	assert.Contains(t, h.last().Text, "# Daftar Perintah NEXUS")
}

func TestSave_Transcript(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "halo")
	h.submit(t, "/simpan")
	assert.Contains(t, h.last().Text, "Percakapan disimpan ke")

	files, err := filepath.Glob(filepath.Join(h.dir, "transcripts", "nexus-chat-*.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[User]\nhalo")
	assert.Contains(t, string(data), "[NEXUS]\nhalo juga")
}

func TestSystemPrompt_ShowsPersonaInstruction(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "/sistem")
	got := h.last().Text
	assert.Contains(t, got, "NEXUS")
	assert.Contains(t, got, session.PersonaNexus.Instruction())

	h.o.Sessions().SetPersona(session.PersonaAsisten)
	h.submit(t, "/system")
	assert.Contains(t, h.last().Text, session.PersonaAsisten.Instruction())
	assert.Empty(t, h.fake.Chats(), "the instruction is shown without calling the model")
}

func TestReconfigure(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "halo")
	h.o.Reconfigure(session.PersonaAsisten, false)
	assert.Equal(t, session.PersonaAsisten, h.o.Sessions().Persona())
	assert.Equal(t, "Persona diganti ke Asisten dari konfigurasi.", h.last().Text)
	assert.Equal(t, 3, h.tl.Len())

	n := h.tl.Len()
	h.o.Reconfigure(session.PersonaAsisten, true)
	assert.Equal(t, n, h.tl.Len())
}
