// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/progress"
)

// Video handles /video. It starts the job, follows the progress stream
// until the result arrives and saves the clip. The whole run is bounded
// by the video timeout.
func (h *Handlers) Video(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	if inv.Text == "" {
		return model.Patch{}, apperr.NewBadRequest("Kasih deskripsi videonya dulu. Contoh: /video kota masa depan --aspect 9:16")
	}
	ctx, cancel := context.WithTimeout(ctx, h.d.VideoTimeout)
	defer cancel()

	req := backend.VideoRequest{
		Prompt:      inv.Text,
		AspectRatio: inv.Flags.String("aspect"),
		Resolution:  inv.Flags.String("res"),
		Quality:     backend.VideoQuality(inv.Flags.String("quality")),
	}
	job, err := h.d.Backend.GenerateVideo(ctx, req)
	if err != nil {
		return model.Patch{}, err
	}
	h.d.Logger.Info("video started", zap.String("job", job.Name), zap.String("quality", string(req.Quality)))

	tracker := progress.NewTracker(h.d.Previews, h.d.Logger)
	result, err := tracker.Follow(ctx, h.d.Backend.PollVideo(ctx, job), func(u progress.Update) error {
		p := model.Patch{
			GenerationStatus: model.Ptr(model.StatusGenerating),
			GenerationText:   model.Ptr(u.Status),
		}
		if u.Percent > 0 {
			p.GenerationProgress = model.Ptr(u.Percent)
		}
		if u.PreviewURL != "" {
			p.VideoURL = model.Ptr(u.PreviewURL)
		}
		return inv.Update(p)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return model.Patch{}, fmt.Errorf("video timed out after %s: %w", h.d.VideoTimeout, err)
		}
		return model.Patch{}, err
	}

	path, err := h.saveMedia("video", result)
	if err != nil {
		return model.Patch{}, err
	}
	return model.Patch{VideoURL: model.Ptr(path)}, nil
}

// Listen handles /dengarkan.
func (h *Handlers) Listen(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	att := inv.Attachment
	if att == nil {
		return model.Patch{}, apperr.NewBadRequest("Lampirkan gambar dulu (pakai /lampirkan <file>), baru /dengarkan.")
	}
	if !att.IsImage() {
		return model.Patch{}, apperr.NewUnsupported("/dengarkan cuma bisa mendengarkan gambar, bukan %s.", att.Name)
	}
	audio, err := h.d.Backend.DescribeAudio(ctx, att)
	if err != nil {
		return model.Patch{}, err
	}
	path, err := h.saveMedia("audio", audio)
	if err != nil {
		return model.Patch{}, err
	}
	return model.Patch{AudioURL: model.Ptr(path)}, nil
}
