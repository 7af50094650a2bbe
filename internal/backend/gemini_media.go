// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ipapadil7-star/nexus/internal/model"
)

// =============================================================================
// IMAGES
// =============================================================================

// GenerateImage renders req.Prompt. Wallpapers go to the Imagen model, which
// takes the aspect ratio natively; everything else goes to the Gemini image
// model with any attachment placed before the prompt.
func (g *Gemini) GenerateImage(ctx context.Context, req ImageRequest) (*Media, error) {
	if req.Wallpaper {
		return g.generateImagen(ctx, req)
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	}
	resp, err := g.generate(ctx, "generate image", g.cfg.ImageModel, []*genai.Content{userContent(req.Prompt, req.Attachment)}, cfg)
	if err != nil {
		return nil, err
	}
	m, ok := inlineMedia(resp)
	if !ok {
		if text := strings.TrimSpace(resp.Text()); text != "" {
			return nil, fmt.Errorf("generate image: model answered without an image: %s", text)
		}
		return nil, errors.New("generate image: model returned no image")
	}
	return m, nil
}

func (g *Gemini) generateImagen(ctx context.Context, req ImageRequest) (*Media, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.cfg.WallpaperModel, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    req.AspectRatio,
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, fmt.Errorf("generate wallpaper: %w", err)
	}
	for _, img := range resp.GeneratedImages {
		if img == nil {
			continue
		}
		if img.Image != nil && len(img.Image.ImageBytes) > 0 {
			mt := img.Image.MIMEType
			if mt == "" {
				mt = "image/jpeg"
			}
			return &Media{MIMEType: mt, Data: img.Image.ImageBytes}, nil
		}
		if img.RAIFilteredReason != "" {
			return nil, fmt.Errorf("generate wallpaper: blocked by safety filter (%s)", img.RAIFilteredReason)
		}
	}
	return nil, errors.New("generate wallpaper: model returned no image")
}

// =============================================================================
// AUDIO DESCRIPTION
// =============================================================================

const (
	describePrompt = "Deskripsikan gambar ini secara detail, seolah-olah Anda adalah narator film dokumenter. Fokus pada elemen visual utama, suasana, dan kemungkinan cerita di baliknya."
	speakPrefix    = "Ucapkan dengan nada jelas dan sedikit dramatis: "

	// TTS output is raw 16-bit PCM.
	ttsSampleRate = 24000
	ttsChannels   = 1
)

// DescribeAudio narrates image in two steps: a text description, then
// speech synthesis of that description wrapped as WAV.
func (g *Gemini) DescribeAudio(ctx context.Context, image *model.Attachment) (*Media, error) {
	if image == nil || !image.IsImage() {
		return nil, errors.New("describe audio: unsupported file, image attachment required")
	}
	desc, err := g.GenerateText(ctx, TextRequest{Prompt: describePrompt, Attachment: image})
	if err != nil {
		return nil, fmt.Errorf("describe image: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.cfg.Voice},
			},
		},
	}
	resp, err := g.generate(ctx, "synthesize speech", g.cfg.TTSModel, []*genai.Content{userContent(speakPrefix+desc, nil)}, cfg)
	if err != nil {
		return nil, err
	}
	pcm, ok := inlineMedia(resp)
	if !ok {
		return nil, errors.New("synthesize speech: model returned no audio")
	}
	g.logger.Debug("speech synthesized", zap.Int("pcm_bytes", len(pcm.Data)), zap.String("mime", pcm.MIMEType))
	return &Media{MIMEType: "audio/wav", Data: PCMToWAV(pcm.Data, ttsSampleRate, ttsChannels)}, nil
}
