// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backendtest provides a scriptable backend for tests.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/model"
)

// Fake is a scriptable backend.Backend. Set the result and error fields
// before use; every call is recorded in Calls.
type Fake struct {
	mu sync.Mutex

	Text    string
	TextErr error

	Image    *backend.Media
	ImageErr error

	VideoErr    error
	VideoEvents []backend.VideoEvent
	VideoResult *backend.Media
	VideoFinal  error

	Audio    *backend.Media
	AudioErr error

	Document    *backend.DocumentResult
	DocumentErr error

	ChatReply string
	ChatErr   error

	StoryErr error
	PanelErr error

	// Block, when set, makes every call wait until it is closed or ctx ends.
	Block chan struct{}

	calls        []string
	textReqs     []backend.TextRequest
	imageReqs    []backend.ImageRequest
	videoReqs    []backend.VideoRequest
	chats        []*Chat
	instructions []string
}

var _ backend.Backend = (*Fake)(nil)

// New returns a Fake with harmless defaults.
func New() *Fake {
	return &Fake{
		Text:        "ok",
		Image:       &backend.Media{MIMEType: "image/png", Data: []byte("png")},
		VideoResult: &backend.Media{MIMEType: "video/mp4", Data: []byte("mp4")},
		Audio:       &backend.Media{MIMEType: "audio/wav", Data: []byte("wav")},
		Document:    &backend.DocumentResult{Format: "pdf", Filename: "dokumen.md", MIMEType: "text/markdown", Data: []byte("# Dokumen\n")},
		ChatReply:   "halo juga",
	}
}

func (f *Fake) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *Fake) wait(ctx context.Context) error {
	if f.Block == nil {
		return nil
	}
	select {
	case <-f.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Calls returns the recorded method names in call order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// TextRequests returns every GenerateText request.
func (f *Fake) TextRequests() []backend.TextRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.TextRequest(nil), f.textReqs...)
}

// ImageRequests returns every GenerateImage request.
func (f *Fake) ImageRequests() []backend.ImageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.ImageRequest(nil), f.imageReqs...)
}

// VideoRequests returns every GenerateVideo request.
func (f *Fake) VideoRequests() []backend.VideoRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.VideoRequest(nil), f.videoReqs...)
}

// Chats returns every chat session opened so far.
func (f *Fake) Chats() []*Chat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Chat(nil), f.chats...)
}

// Instructions returns every ContinueStory instruction.
func (f *Fake) Instructions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.instructions...)
}

func (f *Fake) GenerateText(ctx context.Context, req backend.TextRequest) (string, error) {
	f.record("GenerateText")
	f.mu.Lock()
	f.textReqs = append(f.textReqs, req)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.Text, f.TextErr
}

func (f *Fake) GenerateImage(ctx context.Context, req backend.ImageRequest) (*backend.Media, error) {
	f.record("GenerateImage")
	f.mu.Lock()
	f.imageReqs = append(f.imageReqs, req)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.ImageErr != nil {
		return nil, f.ImageErr
	}
	return f.Image, nil
}

func (f *Fake) GenerateVideo(ctx context.Context, req backend.VideoRequest) (*backend.VideoJob, error) {
	f.record("GenerateVideo")
	f.mu.Lock()
	f.videoReqs = append(f.videoReqs, req)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.VideoErr != nil {
		return nil, f.VideoErr
	}
	return backend.NewVideoJob("operations/fake", nil), nil
}

// PollVideo replays VideoEvents, then ends with VideoFinal or VideoResult.
func (f *Fake) PollVideo(ctx context.Context, job *backend.VideoJob) <-chan backend.VideoEvent {
	f.record("PollVideo")
	out := make(chan backend.VideoEvent)
	go func() {
		defer close(out)
		for _, ev := range f.VideoEvents {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		final := backend.VideoEvent{Result: f.VideoResult, Err: f.VideoFinal}
		if final.Err != nil {
			final.Result = nil
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return out
}

func (f *Fake) DescribeAudio(ctx context.Context, image *model.Attachment) (*backend.Media, error) {
	f.record("DescribeAudio")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.AudioErr != nil {
		return nil, f.AudioErr
	}
	return f.Audio, nil
}

func (f *Fake) GenerateDocument(ctx context.Context, req backend.DocumentRequest, onProgress func(string, int)) (*backend.DocumentResult, error) {
	f.record("GenerateDocument")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if onProgress != nil {
		onProgress("Menyusun draf...", 50)
	}
	if f.DocumentErr != nil {
		return nil, f.DocumentErr
	}
	doc := *f.Document
	doc.Format = string(req.Kind)
	return &doc, nil
}

// Chat is a fake conversation that records what it was sent.
type Chat struct {
	f    *Fake
	Opts backend.ChatOptions

	mu   sync.Mutex
	sent []string
}

// Sent returns the texts sent on this chat.
func (c *Chat) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *Chat) Send(ctx context.Context, text string, att *model.Attachment) (string, error) {
	c.f.record("Chat.Send")
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	if err := c.f.wait(ctx); err != nil {
		return "", err
	}
	return c.f.ChatReply, c.f.ChatErr
}

func (f *Fake) NewChat(ctx context.Context, opts backend.ChatOptions) (backend.ChatSession, error) {
	f.record("NewChat")
	c := &Chat{f: f, Opts: opts}
	f.mu.Lock()
	f.chats = append(f.chats, c)
	f.mu.Unlock()
	return c, nil
}

// Story is a fake comic story.
type Story struct {
	Prompt string
	style  string
	Panels int
}

func (s *Story) Style() string { return s.style }

func (f *Fake) StartStory(ctx context.Context, opts backend.StoryOptions) (backend.StorySession, error) {
	f.record("StartStory")
	if f.StoryErr != nil {
		return nil, f.StoryErr
	}
	return &Story{Prompt: opts.Prompt, style: opts.Style}, nil
}

func (f *Fake) ContinueStory(ctx context.Context, story backend.StorySession, instruction string) (*backend.StoryPanel, error) {
	f.record("ContinueStory")
	f.mu.Lock()
	f.instructions = append(f.instructions, instruction)
	f.mu.Unlock()
	s, ok := story.(*Story)
	if !ok {
		return nil, errors.New("backendtest: foreign story session")
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.PanelErr != nil {
		return nil, f.PanelErr
	}
	s.Panels++
	return &backend.StoryPanel{
		Narrative:   fmt.Sprintf("Panel %d: %s", s.Panels, instruction),
		ImagePrompt: "prompt " + instruction,
		Image:       f.Image,
	}, nil
}
