// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ipapadil7-star/nexus/internal/model"
)

// Default model identifiers.
const (
	DefaultTextModel      = "gemini-2.5-flash"
	DefaultImageModel     = "gemini-2.5-flash-image"
	DefaultWallpaperModel = "imagen-4.0-generate-001"
	DefaultTTSModel       = "gemini-2.5-flash-preview-tts"
	DefaultVideoFastModel = "veo-3.1-fast-generate-preview"
	DefaultVideoHighModel = "veo-3.1-generate-preview"
	DefaultVoice          = "Kore"

	// DefaultPollInterval is the pause between video operation polls.
	DefaultPollInterval = 10 * time.Second
)

// ErrMissingAPIKey is returned by NewGemini without a key.
var ErrMissingAPIKey = errors.New("api key not valid: GEMINI_API_KEY is not set")

// Config selects models and credentials for the Gemini backend.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint; empty means the public one.
	BaseURL string

	TextModel      string
	ImageModel     string
	WallpaperModel string
	TTSModel       string
	VideoFastModel string
	VideoHighModel string
	Voice          string

	PollInterval time.Duration
}

// DefaultConfig returns a Config with every model set.
func DefaultConfig() Config {
	return Config{
		TextModel:      DefaultTextModel,
		ImageModel:     DefaultImageModel,
		WallpaperModel: DefaultWallpaperModel,
		TTSModel:       DefaultTTSModel,
		VideoFastModel: DefaultVideoFastModel,
		VideoHighModel: DefaultVideoHighModel,
		Voice:          DefaultVoice,
		PollInterval:   DefaultPollInterval,
	}
}

// withDefaults fills empty fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TextModel == "" {
		c.TextModel = d.TextModel
	}
	if c.ImageModel == "" {
		c.ImageModel = d.ImageModel
	}
	if c.WallpaperModel == "" {
		c.WallpaperModel = d.WallpaperModel
	}
	if c.TTSModel == "" {
		c.TTSModel = d.TTSModel
	}
	if c.VideoFastModel == "" {
		c.VideoFastModel = d.VideoFastModel
	}
	if c.VideoHighModel == "" {
		c.VideoHighModel = d.VideoHighModel
	}
	if c.Voice == "" {
		c.Voice = d.Voice
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

// =============================================================================
// GEMINI CLIENT
// =============================================================================

// Gemini implements Backend on the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    Config
	logger *zap.Logger

	// pollInterval overrides cfg.PollInterval after a config reload.
	pollInterval atomic.Int64
}

var _ Backend = (*Gemini)(nil)

// NewGemini connects to the Gemini API.
func NewGemini(ctx context.Context, cfg Config, logger *zap.Logger) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g := &Gemini{client: client, cfg: cfg.withDefaults(), logger: logger}
	g.pollInterval.Store(int64(g.cfg.PollInterval))
	return g, nil
}

// SetPollInterval changes the video poll pause for jobs started afterwards.
func (g *Gemini) SetPollInterval(d time.Duration) {
	if d > 0 {
		g.pollInterval.Store(int64(d))
	}
}

// PollInterval returns the current video poll pause.
func (g *Gemini) PollInterval() time.Duration {
	return time.Duration(g.pollInterval.Load())
}

// generate runs one GenerateContent call and checks the response for
// safety blocks.
func (g *Gemini) generate(ctx context.Context, op, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, modelName, contents, cfg)
	if err != nil {
		g.logger.Warn("generate failed", zap.String("op", op), zap.String("model", modelName), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.logger.Debug("generate done", zap.String("op", op), zap.String("model", modelName), zap.Duration("took", time.Since(start)))
	if err := checkBlocked(resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

// checkBlocked reports prompt or candidate safety blocks.
func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return errors.New("empty response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return fmt.Errorf("prompt blocked by safety filter (%s)", fb.BlockReason)
	}
	if len(resp.Candidates) > 0 {
		switch resp.Candidates[0].FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist, genai.FinishReasonImageSafety:
			return fmt.Errorf("response blocked by safety filter (%s)", resp.Candidates[0].FinishReason)
		}
	}
	return nil
}

// userContent builds a user turn: attachment first, then text.
func userContent(text string, att *model.Attachment) *genai.Content {
	var parts []*genai.Part
	if att != nil && len(att.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(att.Data, att.MIMEType))
	}
	if text != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}

func systemContent(system string) *genai.Content {
	if system == "" {
		return nil
	}
	return genai.NewContentFromText(system, genai.RoleUser)
}

// inlineMedia returns the first inline data part of the response.
func inlineMedia(resp *genai.GenerateContentResponse) (*Media, bool) {
	if resp == nil {
		return nil, false
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return &Media{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}, true
			}
		}
	}
	return nil, false
}

// =============================================================================
// TEXT
// =============================================================================

// GenerateText answers a single prompt.
func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{SystemInstruction: systemContent(req.System)}
	if req.Grounded {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	resp, err := g.generate(ctx, "generate text", g.cfg.TextModel, []*genai.Content{userContent(req.Prompt, req.Attachment)}, cfg)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("generate text: model returned empty text")
	}
	return text, nil
}

// =============================================================================
// CHAT
// =============================================================================

// OCR prompt prefixes for chat messages with an image attached.
const (
	ocrOnPrefix  = "Mengenai gambar yang gue lampirkan (baca teksnya kalau ada): "
	ocrOffPrefix = "Mengenai HANYA aspek visual gambar yang gue lampirkan (abaikan semua teks): "
)

// ChatPrompt applies the OCR preference to text sent with an image.
func ChatPrompt(text string, att *model.Attachment, ocr bool) string {
	if att == nil || !att.IsImage() {
		return text
	}
	if ocr {
		return ocrOnPrefix + text
	}
	return ocrOffPrefix + text
}

// geminiChat keeps the conversation history locally and replays it on
// every turn.
type geminiChat struct {
	g       *Gemini
	opts    ChatOptions
	history []*genai.Content
}

// NewChat opens a conversation.
func (g *Gemini) NewChat(ctx context.Context, opts ChatOptions) (ChatSession, error) {
	return &geminiChat{g: g, opts: opts}, nil
}

// Send appends a user turn, asks the model and records its reply. A failed
// turn leaves the history untouched.
func (c *geminiChat) Send(ctx context.Context, text string, att *model.Attachment) (string, error) {
	turn := userContent(ChatPrompt(text, att, c.opts.OCR), att)
	contents := append(append([]*genai.Content{}, c.history...), turn)

	cfg := &genai.GenerateContentConfig{SystemInstruction: systemContent(c.opts.System)}
	resp, err := c.g.generate(ctx, "chat", c.g.cfg.TextModel, contents, cfg)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", errors.New("chat: model returned empty text")
	}
	c.history = append(c.history, turn, genai.NewContentFromText(reply, genai.RoleModel))
	return reply, nil
}
