// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// =============================================================================
// COMIC STORIES
// =============================================================================

// geminiStory is a comic conversation. History only grows when a whole
// panel (narrative and image) succeeded, so a retried panel starts clean.
type geminiStory struct {
	style   string
	system  string
	history []*genai.Content
}

func (s *geminiStory) Style() string { return s.style }

// storyReply is the JSON shape requested for each panel.
type storyReply struct {
	Narrative   string `json:"narrative"`
	ImagePrompt string `json:"image_prompt"`
}

var storySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"narrative":    {Type: genai.TypeString, Description: "Narasi panel dalam Bahasa Indonesia, maksimal tiga kalimat."},
		"image_prompt": {Type: genai.TypeString, Description: "Deskripsi visual panel dalam bahasa Inggris untuk generator gambar."},
	},
	Required: []string{"narrative", "image_prompt"},
}

func storyInstruction(prompt, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kamu adalah penulis dan sutradara komik bergaya %s. ", style)
	if prompt != "" {
		fmt.Fprintf(&b, "Ide ceritanya: %s. ", prompt)
	} else {
		b.WriteString("Karang sendiri ide ceritanya. ")
	}
	b.WriteString("Setiap giliran, tulis SATU panel berikutnya. Jaga karakter, latar, dan alur tetap konsisten antar panel. ")
	b.WriteString("Balas hanya dengan JSON berisi narrative dan image_prompt.")
	return b.String()
}

// StartStory opens a comic story. No model call happens until the first
// ContinueStory.
func (g *Gemini) StartStory(ctx context.Context, opts StoryOptions) (StorySession, error) {
	if strings.TrimSpace(opts.Style) == "" {
		return nil, errors.New("start story: style is required")
	}
	return &geminiStory{style: opts.Style, system: storyInstruction(opts.Prompt, opts.Style)}, nil
}

// ContinueStory writes the next panel and renders its image.
func (g *Gemini) ContinueStory(ctx context.Context, story StorySession, instruction string) (*StoryPanel, error) {
	s, ok := story.(*geminiStory)
	if !ok {
		return nil, fmt.Errorf("continue story: foreign session %T", story)
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = "Lanjutkan ceritanya."
	}
	turn := genai.NewContentFromText(instruction, genai.RoleUser)
	contents := append(append([]*genai.Content{}, s.history...), turn)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: systemContent(s.system),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    storySchema,
	}
	resp, err := g.generate(ctx, "continue story", g.cfg.TextModel, contents, cfg)
	if err != nil {
		return nil, err
	}
	raw := resp.Text()
	reply, err := parseStoryReply(raw)
	if err != nil {
		return nil, fmt.Errorf("continue story: %w", err)
	}

	imagePrompt := fmt.Sprintf("%s, panel komik bergaya %s, tanpa teks atau balon dialog", reply.ImagePrompt, s.style)
	img, err := g.GenerateImage(ctx, ImageRequest{Prompt: imagePrompt})
	if err != nil {
		return nil, fmt.Errorf("render panel: %w", err)
	}

	s.history = append(s.history, turn, genai.NewContentFromText(raw, genai.RoleModel))
	return &StoryPanel{Narrative: reply.Narrative, ImagePrompt: imagePrompt, Image: img}, nil
}

// parseStoryReply decodes a panel reply, tolerating a Markdown code fence.
func parseStoryReply(raw string) (storyReply, error) {
	var r storyReply
	if err := json.Unmarshal([]byte(stripFence(raw)), &r); err != nil {
		return r, fmt.Errorf("decode panel: %w", err)
	}
	r.Narrative = strings.TrimSpace(r.Narrative)
	r.ImagePrompt = strings.TrimSpace(r.ImagePrompt)
	if r.Narrative == "" || r.ImagePrompt == "" {
		return r, errors.New("decode panel: narrative or image_prompt missing")
	}
	return r, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
