// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"

	"github.com/ipapadil7-star/nexus/internal/model"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the generative service nexus talks to. Every call may block on
// the network and honours ctx.
type Backend interface {
	// GenerateText answers a prompt, optionally about an attachment.
	GenerateText(ctx context.Context, req TextRequest) (string, error)

	// GenerateImage renders an image from a prompt, optionally editing an
	// attached image.
	GenerateImage(ctx context.Context, req ImageRequest) (*Media, error)

	// GenerateVideo starts a long-running video job.
	GenerateVideo(ctx context.Context, req VideoRequest) (*VideoJob, error)

	// PollVideo reports progress on job until it finishes. The channel
	// yields zero or more progress events, then exactly one event with
	// Result or Err set, then closes. Cancelling ctx ends the stream with
	// an Err event.
	PollVideo(ctx context.Context, job *VideoJob) <-chan VideoEvent

	// DescribeAudio narrates an image and returns spoken audio.
	DescribeAudio(ctx context.Context, image *model.Attachment) (*Media, error)

	// GenerateDocument drafts a document of the requested kind. onProgress
	// may be nil.
	GenerateDocument(ctx context.Context, req DocumentRequest, onProgress func(status string, percent int)) (*DocumentResult, error)

	// NewChat opens a multi-turn conversation bound to a system instruction.
	NewChat(ctx context.Context, opts ChatOptions) (ChatSession, error)

	// StartStory opens a comic story in the given style.
	StartStory(ctx context.Context, opts StoryOptions) (StorySession, error)

	// ContinueStory produces the next panel of story.
	ContinueStory(ctx context.Context, story StorySession, instruction string) (*StoryPanel, error)
}

// ChatSession is a conversation with history kept by the backend.
type ChatSession interface {
	Send(ctx context.Context, text string, attachment *model.Attachment) (string, error)
}

// StorySession is an opaque comic story handle.
type StorySession interface {
	Style() string
}

// =============================================================================
// REQUESTS AND RESULTS
// =============================================================================

// Media is generated binary content.
type Media struct {
	MIMEType string
	Data     []byte
}

// TextRequest is a single-turn text generation.
type TextRequest struct {
	Prompt     string
	System     string
	Attachment *model.Attachment
	// Grounded enables web search grounding (used for weather).
	Grounded bool
}

// ImageRequest describes one image.
type ImageRequest struct {
	Prompt string
	// AspectRatio is passed to models that take it natively, e.g. "16:9".
	AspectRatio string
	Attachment  *model.Attachment
	// Wallpaper selects the dedicated wallpaper model.
	Wallpaper bool
}

// VideoQuality selects the video model tier.
type VideoQuality string

const (
	VideoFast VideoQuality = "fast"
	VideoHigh VideoQuality = "high"
)

// VideoRequest describes one video.
type VideoRequest struct {
	Prompt      string
	AspectRatio string
	Resolution  string
	Quality     VideoQuality
}

// VideoJob is a handle to a running video generation.
type VideoJob struct {
	Name   string
	handle any
}

// NewVideoJob wraps a backend-specific operation handle.
func NewVideoJob(name string, handle any) *VideoJob {
	return &VideoJob{Name: name, handle: handle}
}

// Handle returns the backend-specific operation handle.
func (j *VideoJob) Handle() any { return j.handle }

// VideoEvent is one item of a PollVideo stream.
type VideoEvent struct {
	Status  string
	Percent int
	// Preview is a new preview clip, set only when it changed.
	Preview *Media
	Result  *Media
	Err     error
}

// Final reports whether ev ends the stream.
func (ev VideoEvent) Final() bool { return ev.Result != nil || ev.Err != nil }

// DocumentKind is the requested document format.
type DocumentKind string

const (
	DocPDF   DocumentKind = "pdf"
	DocSlide DocumentKind = "slide"
	DocSheet DocumentKind = "sheet"
)

// DocumentKinds lists the supported kinds.
var DocumentKinds = []string{string(DocPDF), string(DocSlide), string(DocSheet)}

// DocumentRequest describes one document.
type DocumentRequest struct {
	Kind        DocumentKind
	Description string
}

// DocumentResult is a rendered document file.
type DocumentResult struct {
	Format   string
	Filename string
	MIMEType string
	Data     []byte
}

// ChatOptions configures a new conversation.
type ChatOptions struct {
	System string
	// OCR asks the model to read text in attached images.
	OCR bool
}

// StoryOptions configures a new comic story.
type StoryOptions struct {
	Prompt string
	Style  string
}

// StoryPanel is one rendered comic panel.
type StoryPanel struct {
	Narrative   string
	ImagePrompt string
	Image       *Media
}
