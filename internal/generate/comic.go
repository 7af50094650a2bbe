// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/session"
)

// ContinueCommand is the hidden command continuation keywords dispatch to.
const ContinueCommand = "/lanjutkan"

// ComicActiveMessage rejects a second comic.
const ComicActiveMessage = "Satu komik aja dulu, bos. Selesaikan yang ini (/tamat) baru mulai lagi."

// NoComicRequestMessage rejects a style choice with no /komik before it.
const NoComicRequestMessage = "Mulai komik dulu dengan /komik <ide>, baru pilih gayanya."

// continueKeywords continue the active comic when they open the input.
var continueKeywords = []string{"lanjutkan", "lanjut", "next", "continue"}

// IsContinuation reports whether input asks for the next comic panel: a
// keyword alone or followed by a space and further instructions.
func IsContinuation(input string) bool {
	s := strings.ToLower(strings.TrimSpace(input))
	for _, kw := range continueKeywords {
		if s == kw || strings.HasPrefix(s, kw+" ") {
			return true
		}
	}
	return false
}

// parseStoryStyle matches s against StoryStyles.
func parseStoryStyle(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range StoryStyles {
		if s == st {
			return st, nil
		}
	}
	if s == "" {
		return "", apperr.NewBadRequest("Pilih gaya ceritanya: %s.", strings.Join(StoryStyles, ", "))
	}
	return "", apperr.NewBadRequest("Gaya cerita %q tidak dikenal. Pilihan: %s.", s, strings.Join(StoryStyles, ", "))
}

func panelPatch(n int, status string) model.Patch {
	return model.Patch{
		IsComicPanel:     model.Ptr(true),
		PanelNumber:      model.Ptr(n),
		GenerationStatus: model.Ptr(model.StatusGenerating),
		GenerationText:   model.Ptr(status),
	}
}

func (h *Handlers) finishPanel(panel *backend.StoryPanel, n int) (model.Patch, error) {
	p := model.Patch{
		Text:             model.Ptr(panel.Narrative),
		ComicImagePrompt: model.Ptr(panel.ImagePrompt),
	}
	if panel.Image != nil {
		path, err := h.saveMedia(fmt.Sprintf("komik-panel%d", n), panel.Image)
		if err != nil {
			return model.Patch{}, err
		}
		p.ImageURL = model.Ptr(path)
	}
	return p, nil
}

// StartComic handles /gaya <style>: it takes the pending comic idea left by
// /komik, opens the story and renders panel 1. The comic session only
// exists once panel 1 succeeded; on failure the idea is put back so the
// same choice can be retried.
func (h *Handlers) StartComic(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	style, err := parseStoryStyle(inv.Text)
	if err != nil {
		return model.Patch{}, err
	}
	req, ok, err := h.d.Sessions.TakePendingComic()
	if err != nil {
		if errors.Is(err, session.ErrComicActive) {
			return model.Patch{}, apperr.Wrap(apperr.BadRequest, err, ComicActiveMessage)
		}
		return model.Patch{}, err
	}
	if !ok {
		return model.Patch{}, apperr.NewBadRequest("%s", NoComicRequestMessage)
	}
	restore := func() {
		if rerr := h.d.Sessions.RequestComic(req.Prompt); rerr != nil {
			h.d.Logger.Debug("comic request not restored", zap.Error(rerr))
		}
	}

	if err := inv.Update(panelPatch(1, "Memulai komik... Membuat panel #1...")); err != nil {
		restore()
		return model.Patch{}, err
	}
	story, err := h.d.Backend.StartStory(ctx, backend.StoryOptions{Prompt: req.Prompt, Style: style})
	if err != nil {
		restore()
		return model.Patch{}, err
	}
	instruction := req.Prompt
	if instruction == "" {
		instruction = "Mulai ceritanya."
	}
	panel, err := h.d.Backend.ContinueStory(ctx, story, instruction)
	if err != nil {
		restore()
		return model.Patch{}, err
	}
	if err := h.d.Sessions.StartComic(story, style); err != nil {
		return model.Patch{}, apperr.Wrap(apperr.BadRequest, err, ComicActiveMessage)
	}
	h.d.Logger.Info("comic started", zap.String("style", style))
	return h.finishPanel(panel, 1)
}

// ContinueComic renders the next panel. The panel count only moves once
// the panel succeeded, so a retry after a failure reuses the number.
func (h *Handlers) ContinueComic(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	story, n, err := h.d.Sessions.ReservePanel()
	switch {
	case errors.Is(err, session.ErrNoComic):
		return model.Patch{}, apperr.Wrap(apperr.BadRequest, err, "Belum ada komik yang jalan. Mulai dulu dengan /komik <ide>.")
	case errors.Is(err, session.ErrPanelInFlight):
		return model.Patch{}, apperr.Wrap(apperr.BadRequest, err, "Panel sebelumnya masih digambar. Sabar dulu.")
	case err != nil:
		return model.Patch{}, err
	}
	committed := false
	defer func() {
		if !committed {
			h.d.Sessions.ReleasePanel()
		}
	}()

	if err := inv.Update(panelPatch(n, fmt.Sprintf("Membuat panel #%d...", n))); err != nil {
		return model.Patch{}, err
	}
	instruction := inv.Input
	if strings.HasPrefix(instruction, ContinueCommand) {
		instruction = strings.TrimSpace(strings.TrimPrefix(instruction, ContinueCommand))
	}
	panel, err := h.d.Backend.ContinueStory(ctx, story, instruction)
	if err != nil {
		return model.Patch{}, err
	}
	p, err := h.finishPanel(panel, n)
	if err != nil {
		return model.Patch{}, err
	}
	h.d.Sessions.CommitPanel(story, n)
	committed = true
	return p, nil
}

// RedrawPanel renders the image of comic panel n again from the prompt the
// story gave it and returns the new file's path.
func (h *Handlers) RedrawPanel(ctx context.Context, prompt string, n int) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apperr.NewBadRequest("Prompt gambar asli panel #%d tidak ditemukan.", n)
	}
	img, err := h.d.Backend.GenerateImage(ctx, backend.ImageRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	h.d.Logger.Info("comic panel redrawn", zap.Int("panel", n))
	return h.saveMedia(fmt.Sprintf("komik-panel%d", n), img)
}
