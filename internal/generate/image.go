// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"fmt"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/model"
)

// imageAttachment returns inv's attachment if it is an image. Any other
// attachment is rejected.
func imageAttachment(inv *commands.Invocation) (*model.Attachment, error) {
	att := inv.Attachment
	if att == nil {
		return nil, nil
	}
	if !att.IsImage() {
		return nil, apperr.NewUnsupported("%s cuma bisa pakai lampiran gambar, bukan %s.", inv.Command.Name, att.Name)
	}
	return att, nil
}

// Image handles /gambar.
func (h *Handlers) Image(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	if inv.Text == "" {
		return model.Patch{}, apperr.NewBadRequest("Kasih deskripsi gambarnya dulu. Contoh: /gambar naga merah --style cyberpunk")
	}
	att, err := imageAttachment(inv)
	if err != nil {
		return model.Patch{}, err
	}

	style := inv.Flags.String("style")
	prompt := inv.Text +
		StylePhrase(style) +
		AspectPhrase(inv.Flags.String("aspect"), inv.Flags.Int("width"), inv.Flags.Int("height")) +
		QualityPhrase(inv.Flags.Int("quality"))

	if err := inv.Status(fmt.Sprintf("Imajinasi gue lagi liar... Menciptakan: %q", inv.Text), 10); err != nil {
		return model.Patch{}, err
	}
	img, err := h.d.Backend.GenerateImage(ctx, backend.ImageRequest{Prompt: prompt, AspectRatio: inv.Flags.String("aspect"), Attachment: att})
	if err != nil {
		return model.Patch{}, err
	}
	path, err := h.saveMedia("image", img)
	if err != nil {
		return model.Patch{}, err
	}
	p := model.Patch{ImageURL: model.Ptr(path)}
	if style != "" {
		p.ImageStyle = model.Ptr(style)
	}
	return p, nil
}

// Wallpaper handles /wallpaper.
func (h *Handlers) Wallpaper(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	if inv.Text == "" {
		return model.Patch{}, apperr.NewBadRequest("Kasih deskripsi wallpapernya dulu. Contoh: /wallpaper gunung berkabut --aspect 9:16")
	}
	aspect := inv.Flags.String("aspect")
	style := inv.Flags.String("style")

	target := "desktop"
	if aspect == "9:16" {
		target = "ponsel"
	}
	prompt := fmt.Sprintf("%s, wallpaper %s resolusi tinggi, komposisi bersih tanpa teks%s", inv.Text, target, StylePhrase(style))

	img, err := h.d.Backend.GenerateImage(ctx, backend.ImageRequest{Prompt: prompt, AspectRatio: aspect, Wallpaper: true})
	if err != nil {
		return model.Patch{}, err
	}
	path, err := h.saveMedia("wallpaper", img)
	if err != nil {
		return model.Patch{}, err
	}
	p := model.Patch{ImageURL: model.Ptr(path)}
	if style != "" {
		p.ImageStyle = model.Ptr(style)
	}
	return p, nil
}

// Placeholder handles /placeholder. It renders locally.
func (h *Handlers) Placeholder(ctx context.Context, inv *commands.Invocation) (model.Patch, error) {
	title := inv.Text
	if title == "" {
		title = "Placeholder"
	}
	svg, err := RenderPlaceholder(PlaceholderSpec{
		Title:    title,
		Subtitle: inv.Flags.String("subtitle"),
		Theme:    inv.Flags.String("theme"),
		Style:    inv.Flags.String("style"),
		Icon:     inv.Flags.String("icon"),
	})
	if err != nil {
		return model.Patch{}, err
	}
	path, err := h.saveMedia("placeholder", &backend.Media{MIMEType: "image/svg+xml", Data: svg})
	if err != nil {
		return model.Patch{}, err
	}
	return model.Patch{ImageURL: model.Ptr(path)}, nil
}
