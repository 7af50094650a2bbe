// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/model"
)

var docTypes = map[backend.DocumentKind]model.GenerationType{
	backend.DocPDF:   model.GenPDF,
	backend.DocSlide: model.GenSlide,
	backend.DocSheet: model.GenSheet,
}

// Document handles /buatdok <kind> <description>.
func (h *Handlers) Document(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	kindWord, desc := commands.FirstWord(inv.Text)
	if kindWord == "" {
		return model.Patch{}, apperr.NewBadRequest("Format dokumennya apa? Contoh: /buatdok pdf laporan penjualan kuartal 3")
	}
	kind := backend.DocumentKind(strings.ToLower(kindWord))
	genType, ok := docTypes[kind]
	if !ok {
		return model.Patch{}, apperr.NewBadRequest("Format dokumen %q tidak dikenal. Pilihan: %s.", kindWord, strings.Join(backend.DocumentKinds, ", "))
	}
	if strings.TrimSpace(desc) == "" {
		return model.Patch{}, apperr.NewBadRequest("Deskripsi dokumennya kosong. Contoh: /buatdok %s rencana liburan", kind)
	}
	if err := inv.Update(model.Patch{GenerationType: model.Ptr(genType)}); err != nil {
		return model.Patch{}, err
	}

	doc, err := h.d.Backend.GenerateDocument(ctx, backend.DocumentRequest{Kind: kind, Description: strings.TrimSpace(desc)}, func(status string, pct int) {
		if err := inv.Status(status, pct); err != nil {
			h.d.Logger.Debug("document status dropped", zap.String("status", status), zap.Error(err))
		}
	})
	if err != nil {
		return model.Patch{}, err
	}
	path, err := h.d.Media.SaveAs(doc.Filename, doc.Data)
	if err != nil {
		return model.Patch{}, err
	}
	return model.Patch{
		Text:     model.Ptr(fmt.Sprintf("Dokumen `%s` berhasil dibuat.", doc.Filename)),
		Document: &model.DocumentInfo{Format: doc.Format, Filename: doc.Filename, Path: path},
	}, nil
}

var summaryLengths = map[string]string{
	"short":  "dalam 2-3 kalimat",
	"medium": "dalam satu paragraf dan beberapa poin penting",
	"long":   "secara lengkap dengan subjudul dan poin-poin",
}

// textOrAttachment requires positional text, an attachment, or both.
func textOrAttachment(inv *commands.Invocation, example string) error {
	if inv.Text == "" && inv.Attachment == nil {
		return apperr.NewBadRequest("Kasih teks atau lampirkan file dulu. Contoh: %s", example)
	}
	return nil
}

// Summarize handles /summarize.
func (h *Handlers) Summarize(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	if err := textOrAttachment(inv, "/summarize <teks panjang> --length short"); err != nil {
		return model.Patch{}, err
	}
	prompt := "Ringkas " + subject(inv) + " " + summaryLengths[inv.Flags.String("length")] + "."
	if inv.Text != "" {
		prompt += "\n\n" + inv.Text
	}
	out, err := h.d.Backend.GenerateText(ctx, backend.TextRequest{Prompt: prompt, System: h.system(), Attachment: inv.Attachment})
	if err != nil {
		return model.Patch{}, err
	}
	return textPatch(out), nil
}

// Translate handles /translate.
func (h *Handlers) Translate(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	if err := textOrAttachment(inv, "/translate selamat pagi --to jepang"); err != nil {
		return model.Patch{}, err
	}
	prompt := fmt.Sprintf("Terjemahkan %s ke bahasa %s. Balas hanya dengan terjemahannya.", subject(inv), inv.Flags.String("to"))
	if inv.Text != "" {
		prompt += "\n\n" + inv.Text
	}
	out, err := h.d.Backend.GenerateText(ctx, backend.TextRequest{Prompt: prompt, Attachment: inv.Attachment})
	if err != nil {
		return model.Patch{}, err
	}
	return textPatch(out), nil
}

// Weather handles /cuaca with search grounding.
func (h *Handlers) Weather(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	if inv.Text == "" {
		return model.Patch{}, apperr.NewBadRequest("Kotanya mana? Contoh: /cuaca Bandung --unit c")
	}
	unit := "Celsius"
	if inv.Flags.String("unit") == "f" {
		unit = "Fahrenheit"
	}
	prompt := fmt.Sprintf("Bagaimana cuaca terkini dan prakiraan hari ini di %s? Tulis suhu dalam %s. Jawab singkat dalam Markdown.", inv.Text, unit)
	out, err := h.d.Backend.GenerateText(ctx, backend.TextRequest{Prompt: prompt, System: h.system(), Grounded: true})
	if err != nil {
		return model.Patch{}, err
	}
	return textPatch(out), nil
}

func subject(inv *commands.Invocation) string {
	switch {
	case inv.Attachment != nil && inv.Text != "":
		return "file terlampir dan teks berikut"
	case inv.Attachment != nil:
		return "isi file terlampir"
	default:
		return "teks berikut"
	}
}
