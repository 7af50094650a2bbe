// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import "fmt"

// =============================================================================
// IMAGE STYLES
// =============================================================================

// ImageStyleNames lists the image styles in display order.
var ImageStyleNames = []string{
	"cinematic", "cartoon", "pixelart", "anime", "watercolor",
	"lowpoly", "photorealistic", "fantasy", "steampunk", "cyberpunk",
	"vintage", "minimalist", "comicbook", "darkmode", "abstract",
}

// imageStylePhrases are appended to the prompt for each style.
var imageStylePhrases = map[string]string{
	"cinematic":      ", dalam gaya sinematik, komposisi epik, pencahayaan dramatis",
	"cartoon":        ", dalam gaya kartun yang menyenangkan, garis tebal, warna-warni cerah",
	"pixelart":       ", dalam gaya pixel art, 8-bit, estetika game retro",
	"anime":          ", dalam gaya anime/manga modern, garis tajam, mata yang detail",
	"watercolor":     ", dalam gaya lukisan cat air, tepi lembut, warna yang menyatu",
	"lowpoly":        ", dalam gaya render 3D low-poly, bentuk geometris",
	"photorealistic": ", dalam gaya fotorealistis, sangat detail, pencahayaan alami, seperti foto asli",
	"fantasy":        ", dalam gaya fantasi epik, magis, dunia lain, elemen mitologis",
	"steampunk":      ", dalam gaya steampunk, mesin uap, roda gigi, estetika Victoria",
	"cyberpunk":      ", dalam gaya siberpunk, kota neon, teknologi canggih, distopia futuristik",
	"vintage":        ", dalam gaya foto vintage, sepia atau hitam putih, tampilan kuno",
	"minimalist":     ", dalam gaya minimalis, sederhana, garis bersih, sedikit warna",
	"comicbook":      ", dalam gaya buku komik Amerika, garis tebal, warna solid, panel aksi",
	"darkmode":       ", dalam estetika mode gelap, kontras tinggi, latar belakang gelap, elemen bersinar",
	"abstract":       ", dalam gaya seni abstrak, non-representasional, fokus pada bentuk, warna, dan tekstur",
}

var qualityPhrases = map[int]string{
	1: ", kualitas rendah, sketsa cepat",
	2: ", kualitas standar",
	3: ", kualitas tinggi, sangat detail",
	4: ", kualitas terbaik, ultra-realistis, 4k",
}

const (
	landscapePhrase = ", dilukis dalam format lanskap (horizontal)"
	portraitPhrase  = ", dilukis dalam format potret (vertikal)"
	squarePhrase    = ", dilukis dalam format persegi"
)

// StylePhrase returns the prompt suffix for an image style, or "".
func StylePhrase(style string) string { return imageStylePhrases[style] }

// QualityPhrase returns the prompt suffix for quality 1-4, or "".
func QualityPhrase(q int) string { return qualityPhrases[q] }

// AspectPhrase picks the orientation suffix. An explicit ratio wins over
// width and height together, which win over a single dimension. Zero
// means unset.
func AspectPhrase(aspect string, width, height int) string {
	switch {
	case aspect != "":
		return fmt.Sprintf(", dilukis dalam rasio aspek %s", aspect)
	case width > 0 && height > 0:
		w, h := float64(width), float64(height)
		if w > h*1.2 {
			return landscapePhrase
		}
		if h > w*1.2 {
			return portraitPhrase
		}
		return squarePhrase
	case width > 0:
		return landscapePhrase
	case height > 0:
		return portraitPhrase
	}
	return ""
}

// =============================================================================
// STORY STYLES
// =============================================================================

// StoryStyles lists the comic story styles.
var StoryStyles = []string{"fantasi", "horor", "komedi", "fiksi-ilmiah", "noir", "petualangan", "romansa"}

// =============================================================================
// PLACEHOLDER THEMES
// =============================================================================

// Palette colors one placeholder theme.
type Palette struct {
	Background string
	Accent     string
	Text       string
	Muted      string
}

// PlaceholderThemes maps theme names to palettes.
var PlaceholderThemes = map[string]Palette{
	"dark":   {Background: "#111827", Accent: "#6366f1", Text: "#f9fafb", Muted: "#374151"},
	"light":  {Background: "#f9fafb", Accent: "#2563eb", Text: "#111827", Muted: "#d1d5db"},
	"neon":   {Background: "#0a0a0f", Accent: "#39ff14", Text: "#ff2bd6", Muted: "#1f1f3a"},
	"ocean":  {Background: "#0c4a6e", Accent: "#22d3ee", Text: "#ecfeff", Muted: "#075985"},
	"sunset": {Background: "#7c2d12", Accent: "#fb923c", Text: "#fff7ed", Muted: "#c2410c"},
}

// PlaceholderThemeNames lists the themes in display order.
var PlaceholderThemeNames = []string{"dark", "light", "neon", "ocean", "sunset"}

// PlaceholderStyleNames lists the placeholder background styles.
var PlaceholderStyleNames = []string{"geometric", "organic", "minimal", "gradient"}

// placeholderIcons maps icon names to glyphs.
var placeholderIcons = map[string]string{
	"image":  "🖼",
	"gambar": "🖼",
	"user":   "👤",
	"star":   "★",
	"heart":  "♥",
	"home":   "⌂",
	"camera": "📷",
	"music":  "♪",
	"video":  "▶",
	"code":   "</>",
	"mail":   "✉",
	"cloud":  "☁",
}

func iconGlyph(name string) string {
	if g, ok := placeholderIcons[name]; ok {
		return g
	}
	for _, r := range name {
		return string(r)
	}
	return ""
}
