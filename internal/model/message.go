// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE
// =============================================================================

// Role is the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// DisplayName returns the label used in transcripts.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleModel:
		return "NEXUS"
	default:
		return string(r)
	}
}

// =============================================================================
// GENERATION STATUS
// =============================================================================

// GenerationStatus tracks a placeholder through its lifecycle. Messages that
// never entered the lifecycle have StatusNone.
type GenerationStatus string

const (
	StatusNone       GenerationStatus = ""
	StatusPending    GenerationStatus = "pending"
	StatusGenerating GenerationStatus = "generating"
	StatusComplete   GenerationStatus = "complete"
	StatusError      GenerationStatus = "error"
)

func (s GenerationStatus) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusGenerating:
		return 2
	case StatusComplete, StatusError:
		return 3
	default:
		return 0
	}
}

// Terminal reports whether s is complete or error.
func (s GenerationStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// CanTransition reports whether a placeholder may move from s to next.
// Staying in generating is allowed so progress updates can restate it.
func (s GenerationStatus) CanTransition(next GenerationStatus) bool {
	if s == StatusNone || next == StatusNone || s.Terminal() {
		return false
	}
	if s == StatusGenerating && next == StatusGenerating {
		return true
	}
	return next.rank() > s.rank()
}

// GenerationType names the capability that produced a placeholder.
type GenerationType string

const (
	GenText        GenerationType = "text"
	GenImage       GenerationType = "image"
	GenWallpaper   GenerationType = "wallpaper"
	GenPlaceholder GenerationType = "placeholder"
	GenVideo       GenerationType = "video"
	GenAudio       GenerationType = "audio"
	GenPDF         GenerationType = "pdf"
	GenSlide       GenerationType = "slide"
	GenSheet       GenerationType = "sheet"
	GenComic       GenerationType = "comic"
)

// =============================================================================
// MESSAGE
// =============================================================================

// DocumentInfo describes a generated document file.
type DocumentInfo struct {
	Format   string `json:"format"`
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`
}

// Message is one entry in the timeline.
type Message struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	// Attachment is the file name the user attached, if any.
	Attachment string `json:"attachment,omitempty"`

	// Media references are local file paths.
	ImageURL   string        `json:"image_url,omitempty"`
	ImageStyle string        `json:"image_style,omitempty"`
	VideoURL   string        `json:"video_url,omitempty"`
	AudioURL   string        `json:"audio_url,omitempty"`
	Document   *DocumentInfo `json:"document,omitempty"`

	GenerationStatus   GenerationStatus `json:"generation_status,omitempty"`
	GenerationText     string           `json:"generation_text,omitempty"`
	GenerationProgress int              `json:"generation_progress,omitempty"`
	GenerationType     GenerationType   `json:"generation_type,omitempty"`

	IsComicPanel     bool   `json:"is_comic_panel,omitempty"`
	PanelNumber      int    `json:"panel_number,omitempty"`
	ComicImagePrompt string `json:"comic_image_prompt,omitempty"`
	IsStyleSelector  bool   `json:"is_style_selector,omitempty"`

	// SourceText is the user input that produced this placeholder.
	SourceText string `json:"source_text,omitempty"`
}

// IsPlaceholder reports whether m entered the generation lifecycle.
func (m Message) IsPlaceholder() bool {
	return m.GenerationStatus != StatusNone
}

// HasMedia reports whether m carries any generated media.
func (m Message) HasMedia() bool {
	return m.ImageURL != "" || m.VideoURL != "" || m.AudioURL != "" || m.Document != nil
}

// NewID returns a time-ordered message id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// =============================================================================
// PATCH
// =============================================================================

// Patch is a partial message update. Nil fields are left untouched.
type Patch struct {
	Text               *string
	GenerationStatus   *GenerationStatus
	GenerationText     *string
	GenerationProgress *int
	GenerationType     *GenerationType

	ImageURL   *string
	ImageStyle *string
	VideoURL   *string
	AudioURL   *string
	Document   *DocumentInfo

	IsComicPanel     *bool
	PanelNumber      *int
	ComicImagePrompt *string
	IsStyleSelector  *bool
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T { return &v }

func (p Patch) apply(m *Message) {
	if p.Text != nil {
		m.Text = *p.Text
	}
	if p.GenerationStatus != nil {
		m.GenerationStatus = *p.GenerationStatus
	}
	if p.GenerationText != nil {
		m.GenerationText = *p.GenerationText
	}
	if p.GenerationProgress != nil {
		m.GenerationProgress = clampPercent(*p.GenerationProgress)
	}
	if p.GenerationType != nil {
		m.GenerationType = *p.GenerationType
	}
	if p.ImageURL != nil {
		m.ImageURL = *p.ImageURL
	}
	if p.ImageStyle != nil {
		m.ImageStyle = *p.ImageStyle
	}
	if p.VideoURL != nil {
		m.VideoURL = *p.VideoURL
	}
	if p.AudioURL != nil {
		m.AudioURL = *p.AudioURL
	}
	if p.Document != nil {
		doc := *p.Document
		m.Document = &doc
	}
	if p.IsComicPanel != nil {
		m.IsComicPanel = *p.IsComicPanel
	}
	if p.PanelNumber != nil {
		m.PanelNumber = *p.PanelNumber
	}
	if p.ComicImagePrompt != nil {
		m.ComicImagePrompt = *p.ComicImagePrompt
	}
	if p.IsStyleSelector != nil {
		m.IsStyleSelector = *p.IsStyleSelector
	}
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
