// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"google.golang.org/genai"
)

// =============================================================================
// DOCUMENTS
// =============================================================================

// documentDraft is the JSON shape requested from the model.
type documentDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

var documentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":   {Type: genai.TypeString},
		"content": {Type: genai.TypeString},
	},
	Required: []string{"title", "content"},
}

var documentBriefs = map[DocumentKind]string{
	DocPDF:   "Tulis dokumen lengkap dalam Markdown: judul, pendahuluan, beberapa bagian dengan subjudul, dan kesimpulan.",
	DocSlide: "Tulis presentasi dalam Markdown. Pisahkan setiap slide dengan baris '---'. Setiap slide punya judul '#' dan maksimal lima poin.",
	DocSheet: "Tulis spreadsheet sebagai CSV dengan baris header. Gunakan koma sebagai pemisah dan kutip sel yang mengandung koma. Jangan tambahkan teks lain di content.",
}

// GenerateDocument drafts a document. The rendition is Markdown for pdf and
// slide, CSV for sheet.
func (g *Gemini) GenerateDocument(ctx context.Context, req DocumentRequest, onProgress func(string, int)) (*DocumentResult, error) {
	brief, ok := documentBriefs[req.Kind]
	if !ok {
		return nil, fmt.Errorf("generate document: invalid argument, unknown kind %q", req.Kind)
	}
	report := func(status string, pct int) {
		if onProgress != nil {
			onProgress(status, pct)
		}
	}

	report(fmt.Sprintf("Menyusun draf %s...", req.Kind), 20)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: systemContent(brief + " Gunakan Bahasa Indonesia kecuali diminta lain. Balas hanya dengan JSON berisi title dan content."),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    documentSchema,
	}
	resp, err := g.generate(ctx, "generate document", g.cfg.TextModel, []*genai.Content{userContent(req.Description, nil)}, cfg)
	if err != nil {
		return nil, err
	}

	report("Merapikan format...", 80)
	var draft documentDraft
	if err := json.Unmarshal([]byte(stripFence(resp.Text())), &draft); err != nil {
		return nil, fmt.Errorf("generate document: decode draft: %w", err)
	}
	if strings.TrimSpace(draft.Content) == "" {
		return nil, fmt.Errorf("generate document: model returned empty content")
	}
	return RenderDocument(req.Kind, draft.Title, draft.Content), nil
}

// RenderDocument packages drafted content as a file of the given kind.
func RenderDocument(kind DocumentKind, title, content string) *DocumentResult {
	slug := Slugify(title)
	res := &DocumentResult{Format: string(kind)}
	switch kind {
	case DocSheet:
		res.Filename = slug + ".csv"
		res.MIMEType = "text/csv"
		res.Data = []byte(strings.TrimSpace(content) + "\n")
	case DocSlide:
		res.Filename = slug + "-slide.md"
		res.MIMEType = "text/markdown"
		res.Data = []byte(strings.TrimSpace(content) + "\n")
	default:
		res.Filename = slug + ".md"
		res.MIMEType = "text/markdown"
		body := strings.TrimSpace(content)
		if t := strings.TrimSpace(title); t != "" && !strings.HasPrefix(body, "#") {
			body = "# " + t + "\n\n" + body
		}
		res.Data = []byte(body + "\n")
	}
	return res
}

// Slugify turns a title into a short file name stem.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "dokumen"
	}
	return slug
}
