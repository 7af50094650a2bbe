// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/backend/backendtest"
	"github.com/ipapadil7-star/nexus/internal/commands"
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

type harness struct {
	fake     *backendtest.Fake
	sessions *session.Manager
	media    *storage.MediaStore
	reg      *commands.Registry
	tl       *model.Timeline
	logs     *observer.ObservedLogs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := backendtest.New()
	media, err := storage.NewMediaStore(t.TempDir())
	require.NoError(t, err)
	sessions := session.NewManager(fake, session.DefaultConfig())
	reg := commands.NewRegistry(nil)
	core, logs := observer.New(zapcore.DebugLevel)
	Register(reg, Deps{Backend: fake, Sessions: sessions, Media: media, Previews: media, Logger: zap.New(core)})
	return &harness{fake: fake, sessions: sessions, media: media, reg: reg, tl: model.NewTimeline(), logs: logs}
}

// run drives input through parsing, validation and the handler the way the
// orchestrator does, and returns the placeholder id with the outcome.
func (h *harness) run(input string, att *model.Attachment) (string, model.Patch, error) {
	in := commands.ParseInput(input)
	cmd := h.reg.Get(in.Name)
	if cmd == nil {
		return "", model.Patch{}, errors.New("unknown command " + in.Name)
	}
	text, raw := commands.ParseFlags(in.Args)
	ph := h.tl.AddPlaceholder(cmd.Type, cmd.Status, input)
	flags, err := cmd.Schema.Validate(raw)
	if err != nil {
		return ph.ID, model.Patch{}, err
	}
	if err := h.tl.Start(ph.ID, cmd.Status); err != nil {
		return ph.ID, model.Patch{}, err
	}
	inv := &commands.Invocation{
		Command:       cmd,
		Input:         in.Raw,
		Text:          text,
		Flags:         flags,
		RawFlags:      raw,
		Attachment:    att,
		PlaceholderID: ph.ID,
		Timeline:      h.tl,
	}
	p, err := cmd.Generate(context.Background(), inv)
	return ph.ID, p, err
}

func category(err error) apperr.Category {
	return apperr.Classify(err).Category
}

var pngAttachment = &model.Attachment{Name: "foto.png", MIMEType: "image/png", Data: []byte("png")}
var pdfAttachment = &model.Attachment{Name: "laporan.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")}

// =============================================================================
// IMAGES
// =============================================================================

func TestImage_StyleApplied(t *testing.T) {
	h := newHarness(t)
	_, p, err := h.run("/gambar naga merah --style cyberpunk", nil)
	require.NoError(t, err)

	require.NotNil(t, p.ImageStyle)
	assert.Equal(t, "cyberpunk", *p.ImageStyle)
	require.NotNil(t, p.ImageURL)
	assert.FileExists(t, *p.ImageURL)

	reqs := h.fake.ImageRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "naga merah"+StylePhrase("cyberpunk"), reqs[0].Prompt)
}

func TestImage_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		att   *model.Attachment
		want  apperr.Category
		text  string
	}{
		{"unknown style", "/gambar naga --style klasik", nil, apperr.BadRequest, "cinematic, cartoon"},
		{"quality out of range", "/gambar naga --quality 9", nil, apperr.BadRequest, "Kualitas gambar tidak valid."},
		{"bad aspect", "/gambar naga --aspect lebar", nil, apperr.BadRequest, "--aspect"},
		{"empty prompt", "/gambar --style anime", nil, apperr.BadRequest, "deskripsi"},
		{"pdf attachment", "/gambar naga", pdfAttachment, apperr.UnsupportedAttachment, "laporan.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, _, err := h.run(tt.input, tt.att)
			require.Error(t, err)
			c := apperr.Classify(err)
			assert.Equal(t, tt.want, c.Category)
			assert.Contains(t, c.Message, tt.text)
			assert.Empty(t, h.fake.ImageRequests(), "no backend call on invalid input")
		})
	}
}

func TestImage_EditsAttachedImage(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("/img jadikan malam hari", pngAttachment)
	require.NoError(t, err)
	reqs := h.fake.ImageRequests()
	require.Len(t, reqs, 1)
	assert.Same(t, pngAttachment, reqs[0].Attachment)
}

func TestImage_NetworkFailure(t *testing.T) {
	h := newHarness(t)
	h.fake.ImageErr = errors.New("dial tcp: connection refused")
	_, _, err := h.run("/gambar naga", nil)
	assert.Equal(t, apperr.TransientNetwork, category(err))
}

func TestAspectPhrase(t *testing.T) {
	tests := []struct {
		aspect string
		w, h   int
		want   string
	}{
		{"21:9", 100, 100, ", dilukis dalam rasio aspek 21:9"},
		{"", 1920, 1080, landscapePhrase},
		{"", 1080, 1920, portraitPhrase},
		{"", 1000, 1100, squarePhrase},
		{"", 500, 0, landscapePhrase},
		{"", 0, 500, portraitPhrase},
		{"", 0, 0, ""},
	}
	for _, tt := range tests {
		if got := AspectPhrase(tt.aspect, tt.w, tt.h); got != tt.want {
			t.Errorf("AspectPhrase(%q, %d, %d) = %q, want %q", tt.aspect, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestImage_QualityAndDimensions(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("/gambar kota --width 1920 --height 1080 --quality 4", nil)
	require.NoError(t, err)
	reqs := h.fake.ImageRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "kota"+landscapePhrase+QualityPhrase(4), reqs[0].Prompt)
}

func TestWallpaper(t *testing.T) {
	h := newHarness(t)
	_, p, err := h.run("/wp gunung berkabut --aspect 9:16", nil)
	require.NoError(t, err)
	require.NotNil(t, p.ImageURL)

	reqs := h.fake.ImageRequests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Wallpaper)
	assert.Equal(t, "9:16", reqs[0].AspectRatio)
	assert.Contains(t, reqs[0].Prompt, "ponsel")

	_, _, err = h.run("/wallpaper laut --aspect 4:3", nil)
	assert.Equal(t, apperr.BadRequest, category(err))
}

func TestPlaceholder(t *testing.T) {
	h := newHarness(t)
	_, p, err := h.run(`/ph Toko <Kue> --subtitle "Segera hadir" --theme neon --style organic --icon heart`, nil)
	require.NoError(t, err)
	require.NotNil(t, p.ImageURL)
	assert.True(t, strings.HasSuffix(*p.ImageURL, ".svg"))

	data, err := os.ReadFile(*p.ImageURL)
	require.NoError(t, err)
	svg := string(data)
	assert.Contains(t, svg, "Toko &lt;Kue&gt;")
	assert.Contains(t, svg, "Segera hadir")
	assert.Contains(t, svg, PlaceholderThemes["neon"].Background)
	assert.Contains(t, svg, "<circle")
	assert.Contains(t, svg, "♥")
	assert.Empty(t, h.fake.Calls(), "placeholders render locally")

	_, _, err = h.run("/placeholder judul --theme pelangi", nil)
	c := apperr.Classify(err)
	assert.Equal(t, apperr.BadRequest, c.Category)
	assert.Contains(t, c.Message, "dark, light, neon, ocean, sunset")
}

func TestRenderPlaceholder_Deterministic(t *testing.T) {
	spec := PlaceholderSpec{Title: "Halo", Style: "geometric"}
	a, err := RenderPlaceholder(spec)
	require.NoError(t, err)
	b, err := RenderPlaceholder(spec)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = RenderPlaceholder(PlaceholderSpec{Title: "x", Theme: "nope"})
	assert.Error(t, err)
}

// =============================================================================
// VIDEO AND AUDIO
// =============================================================================

type recorder struct {
	mu     sync.Mutex
	events []model.Message
}

func (r *recorder) add(ev model.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev.Message)
	r.mu.Unlock()
}

func TestVideo_DefaultsAndProgress(t *testing.T) {
	h := newHarness(t)
	h.fake.VideoEvents = []backend.VideoEvent{
		{Status: "Nexus sedang meracik videomu...", Percent: 5},
		{Status: "Merender pola cahaya fraktal...", Percent: 10, Preview: &backend.Media{MIMEType: "video/mp4", Data: []byte("p1")}},
		{Status: "Memoles hasil akhir...", Percent: 50, Preview: &backend.Media{MIMEType: "video/mp4", Data: []byte("p2")}},
	}
	rec := &recorder{}
	h.tl.Subscribe(rec.add)

	id, p, err := h.run("/video kota masa depan --aspect 9:16 --res 1080p", nil)
	require.NoError(t, err)
	require.NotNil(t, p.VideoURL)
	assert.FileExists(t, *p.VideoURL)

	reqs := h.fake.VideoRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, backend.VideoFast, reqs[0].Quality)
	assert.Equal(t, "9:16", reqs[0].AspectRatio)
	assert.Equal(t, "1080p", reqs[0].Resolution)

	var progress, previews []string
	for _, m := range rec.events {
		if m.ID != id || m.GenerationStatus != model.StatusGenerating {
			continue
		}
		progress = append(progress, m.GenerationText)
		if m.VideoURL != "" && (len(previews) == 0 || previews[len(previews)-1] != m.VideoURL) {
			previews = append(previews, m.VideoURL)
		}
	}
	assert.Contains(t, progress, "Memoles hasil akhir...")
	require.Len(t, previews, 2)
	for _, pv := range previews {
		assert.NoFileExists(t, pv, "previews are released")
	}
}

func TestVideo_Validation(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("/video kota --res 4k", nil)
	c := apperr.Classify(err)
	assert.Equal(t, apperr.BadRequest, c.Category)
	assert.Equal(t, "Resolusi video tidak valid. Pilih '720p' atau '1080p'.", c.Message)

	_, _, err = h.run("/video kota --quality ultra", nil)
	assert.Equal(t, "Kualitas video tidak valid. Pilih 'fast' atau 'high'.", apperr.Classify(err).Message)
	assert.Empty(t, h.fake.VideoRequests())
}

func TestVideo_StreamError(t *testing.T) {
	h := newHarness(t)
	h.fake.VideoFinal = errors.New("video blocked by safety filter")
	_, _, err := h.run("/video kucing terbang", nil)
	assert.Equal(t, apperr.SafetyBlocked, category(err))
}

func TestListen(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("/dengarkan", nil)
	assert.Equal(t, apperr.BadRequest, category(err))

	_, _, err = h.run("/dengarkan", pdfAttachment)
	assert.Equal(t, apperr.UnsupportedAttachment, category(err))

	_, p, err := h.run("/listen", pngAttachment)
	require.NoError(t, err)
	require.NotNil(t, p.AudioURL)
	assert.FileExists(t, *p.AudioURL)
}

// =============================================================================
// DOCUMENTS AND TEXT
// =============================================================================

func TestDocument(t *testing.T) {
	h := newHarness(t)
	id, p, err := h.run("/buatdok sheet anggaran bulanan", nil)
	require.NoError(t, err)
	require.NotNil(t, p.Document)
	assert.Equal(t, "sheet", p.Document.Format)
	assert.FileExists(t, p.Document.Path)
	assert.Contains(t, *p.Text, p.Document.Filename)

	m, _ := h.tl.Get(id)
	assert.Equal(t, model.GenSheet, m.GenerationType)

	_, _, err = h.run("/doc word laporan", nil)
	c := apperr.Classify(err)
	assert.Equal(t, apperr.BadRequest, c.Category)
	assert.Contains(t, c.Message, "pdf, slide, sheet")

	_, _, err = h.run("/buatdok pdf", nil)
	assert.Equal(t, apperr.BadRequest, category(err))
}

func TestDocument_DroppedStatusIsLogged(t *testing.T) {
	h := newHarness(t)
	h.fake.Block = make(chan struct{})

	type outcome struct {
		p   model.Patch
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		_, p, err := h.run("/buatdok pdf laporan tahunan", nil)
		done <- outcome{p, err}
	}()

	require.Eventually(t, func() bool {
		for _, c := range h.fake.Calls() {
			if c == "GenerateDocument" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	h.tl.Clear()
	close(h.fake.Block)

	res := <-done
	require.NoError(t, res.err)
	require.NotNil(t, res.p.Document)

	dropped := h.logs.FilterMessage("document status dropped").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, zapcore.DebugLevel, dropped[0].Level)
	assert.Equal(t, "Menyusun draf...", dropped[0].ContextMap()["status"])
}

func TestTextCommands(t *testing.T) {
	h := newHarness(t)
	h.fake.Text = "  hasil  "

	_, p, err := h.run("/ringkas teks yang panjang sekali --length short", nil)
	require.NoError(t, err)
	assert.Equal(t, "hasil", *p.Text)

	_, _, err = h.run("/translate selamat pagi", nil)
	require.NoError(t, err)

	_, _, err = h.run("/cuaca Bandung --unit f", nil)
	require.NoError(t, err)

	reqs := h.fake.TextRequests()
	require.Len(t, reqs, 3)
	assert.Contains(t, reqs[0].Prompt, summaryLengths["short"])
	assert.Contains(t, reqs[1].Prompt, "bahasa inggris")
	assert.True(t, reqs[2].Grounded)
	assert.Contains(t, reqs[2].Prompt, "Fahrenheit")

	_, _, err = h.run("/summarize", nil)
	assert.Equal(t, apperr.BadRequest, category(err))
	_, _, err = h.run("/summarize", pdfAttachment)
	assert.NoError(t, err)
	_, _, err = h.run("/cuaca", nil)
	assert.Equal(t, apperr.BadRequest, category(err))
}

// =============================================================================
// COMICS
// =============================================================================

func TestIsContinuation(t *testing.T) {
	tests := map[string]bool{
		"lanjutkan":                 true,
		"  Lanjut  ":                true,
		"next":                      true,
		"continue please":           true,
		"lanjutkan naganya terbang": true,
		"lanjutannya gimana":        false,
		"nextdoor":                  false,
		"ayo lanjutkan":             false,
		"":                          false,
	}
	for in, want := range tests {
		if got := IsContinuation(in); got != want {
			t.Errorf("IsContinuation(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComic_StartAndContinue(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.RequestComic("naga yang takut api"))

	id, p, err := h.run("/gaya fantasi", nil)
	require.NoError(t, err)
	require.NotNil(t, p.Text)
	assert.Contains(t, *p.Text, "naga yang takut api")
	m, _ := h.tl.Get(id)
	assert.True(t, m.IsComicPanel)
	assert.Equal(t, 1, m.PanelNumber)

	c, ok := h.sessions.Comic()
	require.True(t, ok)
	assert.Equal(t, "fantasi", c.Style)
	assert.Equal(t, 1, c.PanelCount)

	id, _, err = h.run(ContinueCommand+" naganya bersin", nil)
	require.NoError(t, err)
	m, _ = h.tl.Get(id)
	assert.Equal(t, 2, m.PanelNumber)
	c, _ = h.sessions.Comic()
	assert.Equal(t, 2, c.PanelCount)
	assert.Equal(t, "naganya bersin", h.fake.Instructions()[1])
}

func TestComic_FailedPanelDoesNotCount(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.RequestComic("detektif"))
	_, _, err := h.run("/gaya noir", nil)
	require.NoError(t, err)

	h.fake.PanelErr = errors.New("deadline exceeded")
	_, _, err = h.run(ContinueCommand, nil)
	assert.Equal(t, apperr.TransientNetwork, category(err))
	c, _ := h.sessions.Comic()
	assert.Equal(t, 1, c.PanelCount)

	h.fake.PanelErr = nil
	id, _, err := h.run(ContinueCommand, nil)
	require.NoError(t, err)
	m, _ := h.tl.Get(id)
	assert.Equal(t, 2, m.PanelNumber, "retry reuses the panel number")
}

func TestComic_SecondStartRejected(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.RequestComic("rumah tua"))
	_, _, err := h.run("/gaya horor", nil)
	require.NoError(t, err)

	_, _, err = h.run("/gaya komedi", nil)
	c := apperr.Classify(err)
	assert.Equal(t, apperr.BadRequest, c.Category)
	assert.Equal(t, ComicActiveMessage, c.Message)

	comic, _ := h.sessions.Comic()
	assert.Equal(t, "horor", comic.Style)
	assert.Equal(t, 1, comic.PanelCount)
}

func TestComic_FailedStartKeepsIdea(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.RequestComic("robot kesepian"))
	h.fake.PanelErr = errors.New("429 too many requests")

	_, _, err := h.run("/gaya fiksi-ilmiah", nil)
	assert.Equal(t, apperr.RateLimited, category(err))
	assert.False(t, h.sessions.ComicActive())
	req, ok := h.sessions.PendingComic()
	require.True(t, ok)
	assert.Equal(t, "robot kesepian", req.Prompt)

	_, _, err = h.run("/gaya jazz", nil)
	assert.Equal(t, apperr.BadRequest, category(err))
}

func TestComic_StyleWithoutRequest(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("/gaya noir", nil)
	c := apperr.Classify(err)
	assert.Equal(t, apperr.BadRequest, c.Category)
	assert.Equal(t, NoComicRequestMessage, c.Message)
	assert.False(t, h.sessions.ComicActive())
	_, ok := h.sessions.PendingComic()
	assert.False(t, ok)
	assert.NotContains(t, h.fake.Calls(), "StartStory")
}

func TestComic_FailedStoryStartRestoresOnlyTakenIdea(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.RequestComic("pulau terapung"))
	h.fake.StoryErr = errors.New("connection refused")

	_, _, err := h.run("/gaya petualangan", nil)
	assert.Equal(t, apperr.TransientNetwork, category(err))
	req, ok := h.sessions.PendingComic()
	require.True(t, ok)
	assert.Equal(t, "pulau terapung", req.Prompt)

	// The restored idea is consumed by the next choice; a failed choice
	// without any idea must not leave an empty one behind.
	h.fake.StoryErr = nil
	_, _, err = h.run("/gaya petualangan", nil)
	require.NoError(t, err)
	require.True(t, h.sessions.EndComic())

	_, _, err = h.run("/gaya petualangan", nil)
	assert.Equal(t, apperr.BadRequest, category(err))
	_, ok = h.sessions.PendingComic()
	assert.False(t, ok)
}

func TestComic_ContinueWithoutSession(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(ContinueCommand, nil)
	assert.Equal(t, apperr.BadRequest, category(err))
}
