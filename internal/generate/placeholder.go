// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"html"
	"strings"
	"text/template"
)

// PlaceholderSpec describes one placeholder image.
type PlaceholderSpec struct {
	Title    string
	Subtitle string
	Theme    string
	Style    string
	Icon     string
	Width    int
	Height   int
}

type shape struct {
	X, Y, R, W, H int
	Opacity        string
}

type placeholderData struct {
	PlaceholderSpec
	Palette
	Glyph  string
	Shapes []shape
	CX, CY int
}

var placeholderTmpl = template.Must(template.New("placeholder").Funcs(template.FuncMap{
	"esc": html.EscapeString,
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
{{- if eq .Style "gradient"}}
  <defs><linearGradient id="bg" x1="0" y1="0" x2="1" y2="1"><stop offset="0" stop-color="{{.Background}}"/><stop offset="1" stop-color="{{.Accent}}"/></linearGradient></defs>
  <rect width="100%" height="100%" fill="url(#bg)"/>
{{- else}}
  <rect width="100%" height="100%" fill="{{.Background}}"/>
{{- end}}
{{- if eq .Style "geometric"}}
{{- range .Shapes}}
  <rect x="{{.X}}" y="{{.Y}}" width="{{.W}}" height="{{.H}}" fill="{{$.Muted}}" opacity="{{.Opacity}}" transform="rotate(15 {{.X}} {{.Y}})"/>
{{- end}}
{{- else if eq .Style "organic"}}
{{- range .Shapes}}
  <circle cx="{{.X}}" cy="{{.Y}}" r="{{.R}}" fill="{{$.Accent}}" opacity="{{.Opacity}}"/>
{{- end}}
{{- end}}
{{- if .Glyph}}
  <text x="{{.CX}}" y="{{.CY}}" dy="-70" font-family="sans-serif" font-size="64" text-anchor="middle" fill="{{.Accent}}">{{esc .Glyph}}</text>
{{- end}}
  <text x="{{.CX}}" y="{{.CY}}" font-family="sans-serif" font-size="48" font-weight="bold" text-anchor="middle" fill="{{.Text}}">{{esc .Title}}</text>
{{- if .Subtitle}}
  <text x="{{.CX}}" y="{{.CY}}" dy="48" font-family="sans-serif" font-size="24" text-anchor="middle" fill="{{.Text}}" opacity="0.8">{{esc .Subtitle}}</text>
{{- end}}
</svg>
`))

// RenderPlaceholder draws spec as SVG. Decorations are derived from the
// title, so the same spec always renders the same image.
func RenderPlaceholder(spec PlaceholderSpec) ([]byte, error) {
	if spec.Width <= 0 {
		spec.Width = 1200
	}
	if spec.Height <= 0 {
		spec.Height = 630
	}
	if spec.Theme == "" {
		spec.Theme = "dark"
	}
	if spec.Style == "" {
		spec.Style = "minimal"
	}
	pal, ok := PlaceholderThemes[spec.Theme]
	if !ok {
		return nil, fmt.Errorf("unknown placeholder theme %q", spec.Theme)
	}
	data := placeholderData{
		PlaceholderSpec: spec,
		Palette:         pal,
		Glyph:           iconGlyph(strings.ToLower(spec.Icon)),
		Shapes:          shapesFor(spec),
		CX:              spec.Width / 2,
		CY:              spec.Height / 2,
	}
	var buf bytes.Buffer
	if err := placeholderTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// shapesFor scatters decorations with a seed taken from the title.
func shapesFor(spec PlaceholderSpec) []shape {
	h := fnv.New32a()
	h.Write([]byte(spec.Title + spec.Subtitle))
	seed := h.Sum32()
	next := func(n int) int {
		seed = seed*1664525 + 1013904223
		return int(seed>>8) % n
	}
	shapes := make([]shape, 6)
	for i := range shapes {
		shapes[i] = shape{
			X:       next(spec.Width),
			Y:       next(spec.Height),
			R:       40 + next(120),
			W:       60 + next(200),
			H:       60 + next(200),
			Opacity: fmt.Sprintf("0.%d", 15+next(30)),
		}
	}
	return shapes
}
