// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// =============================================================================
// VIDEO
// =============================================================================

const (
	videoStartStatus = "Nexus sedang meracik videomu..."
	videoFinalStatus = "Video selesai! Mengambil file..."
)

// videoStatuses rotate while the operation runs.
var videoStatuses = []string{
	"Merender pola cahaya fraktal...",
	"Mengajarkan kucing siberpunk untuk mengemudi...",
	"Memoles hasil akhir, jangan ganggu...",
	"Mengkalibrasi fluks kuantum...",
	"Hampir selesai, jangan kemana-mana...",
}

// videoModel picks the model for a quality tier.
func (g *Gemini) videoModel(q VideoQuality) string {
	if q == VideoHigh {
		return g.cfg.VideoHighModel
	}
	return g.cfg.VideoFastModel
}

// GenerateVideo starts a Veo operation.
func (g *Gemini) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoJob, error) {
	modelName := g.videoModel(req.Quality)
	op, err := g.client.Models.GenerateVideos(ctx, modelName, req.Prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    req.AspectRatio,
		Resolution:     req.Resolution,
	})
	if err != nil {
		return nil, fmt.Errorf("start video: %w", err)
	}
	g.logger.Info("video job started", zap.String("operation", op.Name), zap.String("model", modelName))
	return NewVideoJob(op.Name, op), nil
}

// PollVideo follows the operation until it finishes. Polls are paced by a
// rate limiter so a slow poll does not shorten the next pause.
func (g *Gemini) PollVideo(ctx context.Context, job *VideoJob) <-chan VideoEvent {
	out := make(chan VideoEvent, 1)
	go func() {
		defer close(out)
		media, err := g.pollVideo(ctx, job, out)
		final := VideoEvent{Result: media, Err: err}
		if err == nil && media == nil {
			final.Err = errors.New("poll video: no result")
		}
		select {
		case out <- final:
		case <-ctx.Done():
			// Best effort: the buffer may still have room for the error.
			select {
			case out <- VideoEvent{Err: ctx.Err()}:
			default:
			}
		}
	}()
	return out
}

func (g *Gemini) pollVideo(ctx context.Context, job *VideoJob, out chan<- VideoEvent) (*Media, error) {
	op, ok := job.Handle().(*genai.GenerateVideosOperation)
	if !ok || op == nil {
		return nil, fmt.Errorf("poll video: foreign job %T", job.Handle())
	}
	emit := func(ev VideoEvent) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := emit(VideoEvent{Status: videoStartStatus, Percent: 5}); err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(g.PollInterval()), 1)
	limiter.Allow() // the first poll waits a full interval

	var lastPreview string
	for polls := 0; !op.Done; polls++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		next, err := g.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("poll video: %w", err)
		}
		op = next

		ev := VideoEvent{
			Status:  videoStatuses[polls%len(videoStatuses)],
			Percent: pollPercent(polls),
		}
		if uri := previewURI(op.Metadata); uri != "" && uri != lastPreview {
			preview, err := g.download(ctx, &genai.Video{URI: uri})
			if err != nil {
				g.logger.Warn("preview download failed", zap.Error(err))
			} else {
				lastPreview = uri
				ev.Preview = preview
			}
		}
		if err := emit(ev); err != nil {
			return nil, err
		}
	}

	video, err := videoResult(op)
	if err != nil {
		return nil, err
	}
	if err := emit(VideoEvent{Status: videoFinalStatus, Percent: 95}); err != nil {
		return nil, err
	}
	media, err := g.download(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	return media, nil
}

// pollPercent estimates progress, since the operation reports none.
func pollPercent(polls int) int {
	p := 10 + polls*8
	if p > 90 {
		p = 90
	}
	return p
}

// previewURI digs the preview clip location out of operation metadata.
func previewURI(meta map[string]any) string {
	videos, _ := meta["generatedVideos"].([]any)
	if len(videos) == 0 {
		return ""
	}
	first, _ := videos[0].(map[string]any)
	preview, _ := first["preview"].(map[string]any)
	uri, _ := preview["uri"].(string)
	return uri
}

// videoResult checks a finished operation and returns the generated video,
// which carries either a download URI or inline bytes.
func videoResult(op *genai.GenerateVideosOperation) (*genai.Video, error) {
	if len(op.Error) > 0 {
		msg, _ := op.Error["message"].(string)
		if msg == "" {
			msg = fmt.Sprint(op.Error)
		}
		return nil, fmt.Errorf("video operation failed: %s", msg)
	}
	resp := op.Response
	if resp != nil && resp.RAIMediaFilteredCount > 0 {
		return nil, fmt.Errorf("video blocked by safety filter: %s", strings.Join(resp.RAIMediaFilteredReasons, "; "))
	}
	if resp == nil || len(resp.GeneratedVideos) == 0 || resp.GeneratedVideos[0].Video == nil {
		return nil, errors.New("Gagal dapat URL video dari respons. Kosong.")
	}
	v := resp.GeneratedVideos[0].Video
	if v.URI == "" && len(v.VideoBytes) == 0 {
		return nil, errors.New("Gagal dapat URL video dari respons. Kosong.")
	}
	return v, nil
}

// download returns the bytes of a generated video, fetching them through
// the Files API unless the response already carried them inline.
func (g *Gemini) download(ctx context.Context, v *genai.Video) (*Media, error) {
	mime := v.MIMEType
	if mime == "" {
		mime = "video/mp4"
	}
	if len(v.VideoBytes) > 0 {
		return &Media{MIMEType: mime, Data: v.VideoBytes}, nil
	}
	data, err := g.client.Files.Download(ctx, genai.NewDownloadURIFromVideo(v), nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download %s: empty body", v.URI)
	}
	return &Media{MIMEType: mime, Data: data}, nil
}
