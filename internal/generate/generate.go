// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/progress"
	"github.com/ipapadil7-star/nexus/internal/session"
)

// DefaultVideoTimeout bounds one video generation, polling included.
const DefaultVideoTimeout = 10 * time.Minute

// Command categories, in help order.
const (
	CategoryImage    = "Gambar"
	CategoryMedia    = "Video & Audio"
	CategoryDocument = "Dokumen & Teks"
	CategoryComic    = "Komik"
)

// MediaStore persists generated files and returns their local paths.
type MediaStore interface {
	Save(kind string, m *backend.Media) (string, error)
	SaveAs(name string, data []byte) (string, error)
}

// Deps are the collaborators the handlers share.
type Deps struct {
	Backend  backend.Backend
	Sessions *session.Manager
	Media    MediaStore
	// Previews materializes video previews; nil skips them.
	Previews progress.Materializer
	Logger   *zap.Logger

	VideoTimeout time.Duration
}

// Handlers implements every generation command.
type Handlers struct {
	d Deps
}

// New returns handlers over d.
func New(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.VideoTimeout <= 0 {
		d.VideoTimeout = DefaultVideoTimeout
	}
	return &Handlers{d: d}
}

// Register adds every generation command to reg.
func Register(reg *commands.Registry, d Deps) *Handlers {
	h := New(d)
	for _, cmd := range h.Commands() {
		reg.Register(cmd)
	}
	return h
}

// system returns the active persona's instruction for one-shot prompts.
func (h *Handlers) system() string {
	if h.d.Sessions == nil {
		return session.PersonaNexus.Instruction()
	}
	return h.d.Sessions.Persona().Instruction()
}

// saveMedia stores m and returns its path.
func (h *Handlers) saveMedia(kind string, m *backend.Media) (string, error) {
	path, err := h.d.Media.Save(kind, m)
	if err != nil {
		h.d.Logger.Error("media save failed", zap.String("kind", kind), zap.Error(err))
		return "", err
	}
	return path, nil
}

func textPatch(text string) model.Patch {
	return model.Patch{Text: model.Ptr(strings.TrimSpace(text))}
}

// =============================================================================
// COMMAND TABLE
// =============================================================================

var ratioPattern = regexp.MustCompile(`^\d+:\d+$`)

// Commands returns the generation commands with their schemas.
func (h *Handlers) Commands() []*commands.Command {
	imageStyleInvalid := "Gaya gambar tidak valid. Coba salah satu dari: " + strings.Join(ImageStyleNames, ", ") + "."

	return []*commands.Command{
		{
			Name:        "/gambar",
			Aliases:     []string{"/image", "/img"},
			Description: "Bikin gambar dari deskripsi. Lampirkan gambar untuk mengeditnya.",
			Usage:       "/gambar <deskripsi> [--style gaya] [--quality 1-4] [--aspect 16:9]",
			Category:    CategoryImage,
			Type:        model.GenImage,
			Status:      "Imajinasi gue lagi liar...",
			Generate:    h.Image,
			Schema: commands.Schema{
				{Name: "style", Description: "Gaya gambar", Values: ImageStyleNames, Invalid: imageStyleInvalid},
				{Name: "quality", Type: commands.TypeInt, Description: "Kualitas 1-4", Min: 1, Max: 4, Invalid: "Kualitas gambar tidak valid."},
				{Name: "aspect", Description: "Rasio aspek", Pattern: ratioPattern, PatternHint: "16:9"},
				{Name: "width", Type: commands.TypeInt, Description: "Lebar (piksel)", Min: 1, Max: 10000},
				{Name: "height", Type: commands.TypeInt, Description: "Tinggi (piksel)", Min: 1, Max: 10000},
			},
		},
		{
			Name:        "/wallpaper",
			Aliases:     []string{"/wp"},
			Description: "Bikin wallpaper desktop atau ponsel.",
			Usage:       "/wallpaper <deskripsi> [--aspect 16:9|9:16] [--style gaya]",
			Category:    CategoryImage,
			Type:        model.GenWallpaper,
			Status:      "Merancang wallpaper...",
			Generate:    h.Wallpaper,
			Schema: commands.Schema{
				{Name: "aspect", Description: "16:9 (desktop) atau 9:16 (ponsel)", Values: []string{"16:9", "9:16"}, Default: "16:9"},
				{Name: "style", Description: "Gaya gambar", Values: ImageStyleNames, Invalid: imageStyleInvalid},
			},
		},
		{
			Name:        "/placeholder",
			Aliases:     []string{"/ph"},
			Description: "Bikin gambar placeholder dengan judul.",
			Usage:       "/placeholder [judul] [--subtitle teks] [--theme tema] [--style gaya] [--icon ikon]",
			Category:    CategoryImage,
			Type:        model.GenPlaceholder,
			Status:      "Membuat gambar placeholder...",
			Generate:    h.Placeholder,
			Schema: commands.Schema{
				{Name: "subtitle", Description: "Subjudul"},
				{Name: "theme", Description: "Tema warna", Values: PlaceholderThemeNames, Default: "dark"},
				{Name: "style", Description: "Gaya latar", Values: PlaceholderStyleNames, Default: "minimal"},
				{Name: "icon", Description: "Nama ikon"},
			},
		},
		{
			Name:        "/video",
			Aliases:     []string{"/vid"},
			Description: "Bikin video pendek dari deskripsi.",
			Usage:       "/video <deskripsi> [--aspect 16:9|9:16] [--res 720p|1080p] [--quality fast|high]",
			Category:    CategoryMedia,
			Type:        model.GenVideo,
			Status:      "Memulai generator video...",
			Generate:    h.Video,
			Schema: commands.Schema{
				{Name: "aspect", Description: "Rasio aspek", Values: []string{"16:9", "9:16"}, Default: "16:9", Invalid: "Rasio aspek video tidak valid. Pilih '16:9' atau '9:16'."},
				{Name: "res", Description: "Resolusi", Values: []string{"720p", "1080p"}, Default: "720p", Invalid: "Resolusi video tidak valid. Pilih '720p' atau '1080p'."},
				{Name: "quality", Description: "Tingkat kualitas", Values: []string{string(backend.VideoFast), string(backend.VideoHigh)}, Default: string(backend.VideoFast), Invalid: "Kualitas video tidak valid. Pilih 'fast' atau 'high'."},
			},
		},
		{
			Name:        "/dengarkan",
			Aliases:     []string{"/listen"},
			Description: "Narasikan gambar yang dilampirkan jadi audio.",
			Usage:       "/dengarkan (dengan lampiran gambar)",
			Category:    CategoryMedia,
			Type:        model.GenAudio,
			Status:      "Mendengarkan bisikan dari gambar...",
			Generate:    h.Listen,
		},
		{
			Name:        "/buatdok",
			Aliases:     []string{"/doc"},
			Description: "Bikin dokumen: pdf, slide, atau sheet.",
			Usage:       "/buatdok <pdf|slide|sheet> <deskripsi>",
			Category:    CategoryDocument,
			Type:        model.GenPDF,
			Status:      "Membuat dokumen...",
			Generate:    h.Document,
		},
		{
			Name:        "/summarize",
			Aliases:     []string{"/ringkas"},
			Description: "Ringkas teks atau lampiran.",
			Usage:       "/summarize <teks> [--length short|medium|long]",
			Category:    CategoryDocument,
			Type:        model.GenText,
			Status:      "Meringkas...",
			Generate:    h.Summarize,
			Schema: commands.Schema{
				{Name: "length", Description: "Panjang ringkasan", Values: []string{"short", "medium", "long"}, Default: "medium"},
			},
		},
		{
			Name:        "/translate",
			Aliases:     []string{"/terjemah"},
			Description: "Terjemahkan teks atau lampiran.",
			Usage:       "/translate <teks> [--to bahasa]",
			Category:    CategoryDocument,
			Type:        model.GenText,
			Status:      "Menerjemahkan...",
			Generate:    h.Translate,
			Schema: commands.Schema{
				{Name: "to", Description: "Bahasa tujuan", Default: "inggris"},
			},
		},
		{
			Name:        "/cuaca",
			Aliases:     []string{"/weather"},
			Description: "Cek cuaca terkini sebuah kota.",
			Usage:       "/cuaca <kota> [--unit c|f]",
			Category:    CategoryDocument,
			Type:        model.GenText,
			Status:      "Mengintip langit...",
			Generate:    h.Weather,
			Schema: commands.Schema{
				{Name: "unit", Description: "Satuan suhu", Values: []string{"c", "f"}, Default: "c"},
			},
		},
		{
			Name:        "/gaya",
			Aliases:     []string{"/style"},
			Description: "Pilih gaya cerita dan mulai komik.",
			Usage:       "/gaya <" + strings.Join(StoryStyles, "|") + ">",
			Category:    CategoryComic,
			Type:        model.GenComic,
			Status:      "Memulai komik...",
			Generate:    h.StartComic,
		},
		{
			Name:        ContinueCommand,
			Description: "Lanjutkan komik ke panel berikutnya.",
			Usage:       "lanjutkan [arahan]",
			Category:    CategoryComic,
			Hidden:      true,
			Type:        model.GenComic,
			Status:      "Membuat panel berikutnya...",
			Generate:    h.ContinueComic,
		},
	}
}
