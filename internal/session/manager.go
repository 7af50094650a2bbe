// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ipapadil7-star/nexus/internal/backend"
)

var (
	// ErrComicActive is returned when starting a comic while one is running.
	ErrComicActive = errors.New("a comic session is already active")
	// ErrNoComic is returned when continuing without a comic session.
	ErrNoComic = errors.New("no active comic session")
	// ErrPanelInFlight is returned when a panel is already being generated.
	ErrPanelInFlight = errors.New("a comic panel is already being generated")
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// ChatFactory opens chat sessions. backend.Backend satisfies it.
type ChatFactory interface {
	NewChat(ctx context.Context, opts backend.ChatOptions) (backend.ChatSession, error)
}

// ComicRequest is an idea waiting for the user to pick a story style.
type ComicRequest struct {
	Prompt    string
	CreatedAt time.Time
}

// ComicSession is the active comic story.
type ComicSession struct {
	Story      backend.StorySession
	Style      string
	PanelCount int
	StartedAt  time.Time
}

// Manager owns the chat session, the comic session and the pending
// confirmation. It is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	factory ChatFactory
	persona Persona
	ocr     bool
	chat    backend.ChatSession

	comic        *ComicSession
	pendingComic *ComicRequest
	panelBusy    bool

	pending *Confirmation

	onPersonaChange func(Persona)
}

// Config holds the manager's starting state.
type Config struct {
	Persona Persona
	OCR     bool
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{Persona: PersonaNexus, OCR: true}
}

// NewManager returns a manager that opens chats through factory.
func NewManager(factory ChatFactory, cfg Config) *Manager {
	if cfg.Persona == "" {
		cfg.Persona = PersonaNexus
	}
	return &Manager{factory: factory, persona: cfg.Persona, ocr: cfg.OCR}
}

// SetOnPersonaChange registers a callback run after the persona changes.
// It is called outside the lock.
func (m *Manager) SetOnPersonaChange(fn func(Persona)) {
	m.mu.Lock()
	m.onPersonaChange = fn
	m.mu.Unlock()
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// Persona returns the active persona.
func (m *Manager) Persona() Persona {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persona
}

// SetOCR changes whether chat asks the model to read text in images. The
// chat session is recreated on next use.
func (m *Manager) SetOCR(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ocr != on {
		m.ocr = on
		m.chat = nil
	}
}

// Chat returns the current chat session, opening one for the active
// persona if there is none.
func (m *Manager) Chat(ctx context.Context) (backend.ChatSession, error) {
	m.mu.Lock()
	if m.chat != nil {
		c := m.chat
		m.mu.Unlock()
		return c, nil
	}
	persona, ocr := m.persona, m.ocr
	m.mu.Unlock()

	c, err := m.factory.NewChat(ctx, backend.ChatOptions{System: persona.Instruction(), OCR: ocr})
	if err != nil {
		return nil, fmt.Errorf("open chat for %s: %w", persona, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// A persona change or clear while we were opening wins.
	if m.persona != persona || m.ocr != ocr {
		return c, nil
	}
	if m.chat == nil {
		m.chat = c
	}
	return m.chat, nil
}

// SetPersona switches persona, dropping the chat and comic sessions.
func (m *Manager) SetPersona(p Persona) {
	m.mu.Lock()
	changed := m.persona != p
	m.persona = p
	m.chat = nil
	m.comic = nil
	m.pendingComic = nil
	m.panelBusy = false
	cb := m.onPersonaChange
	m.mu.Unlock()

	if changed && cb != nil {
		cb(p)
	}
}

// Reset drops the chat session, the comic session and any pending comic
// request. The persona is kept.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat = nil
	m.comic = nil
	m.pendingComic = nil
	m.panelBusy = false
}

// =============================================================================
// COMIC SESSION
// =============================================================================

// Comic returns a copy of the active comic session.
func (m *Manager) Comic() (ComicSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.comic == nil {
		return ComicSession{}, false
	}
	return *m.comic, true
}

// ComicActive reports whether a comic session exists.
func (m *Manager) ComicActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.comic != nil
}

// RequestComic records an idea awaiting a style choice. It fails while a
// comic is active.
func (m *Manager) RequestComic(prompt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.comic != nil {
		return ErrComicActive
	}
	m.pendingComic = &ComicRequest{Prompt: prompt, CreatedAt: time.Now()}
	return nil
}

// PendingComic returns the idea awaiting a style, if any.
func (m *Manager) PendingComic() (ComicRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingComic == nil {
		return ComicRequest{}, false
	}
	return *m.pendingComic, true
}

// TakePendingComic removes and returns the idea awaiting a style. It fails
// with ErrComicActive if a comic started in the meantime.
func (m *Manager) TakePendingComic() (ComicRequest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.comic != nil {
		return ComicRequest{}, false, ErrComicActive
	}
	if m.pendingComic == nil {
		return ComicRequest{}, false, nil
	}
	req := *m.pendingComic
	m.pendingComic = nil
	return req, true, nil
}

// StartComic installs story as the active comic with its first panel done.
func (m *Manager) StartComic(story backend.StorySession, style string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.comic != nil {
		return ErrComicActive
	}
	m.comic = &ComicSession{Story: story, Style: style, PanelCount: 1, StartedAt: time.Now()}
	m.pendingComic = nil
	return nil
}

// ReservePanel claims the next panel number. The count only moves when
// CommitPanel is called, so a failed attempt retried later gets the same
// number.
func (m *Manager) ReservePanel() (backend.StorySession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.comic == nil {
		return nil, 0, ErrNoComic
	}
	if m.panelBusy {
		return nil, 0, ErrPanelInFlight
	}
	m.panelBusy = true
	return m.comic.Story, m.comic.PanelCount + 1, nil
}

// CommitPanel records panel as generated.
func (m *Manager) CommitPanel(story backend.StorySession, panel int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.comic == nil || m.comic.Story != story {
		return
	}
	m.panelBusy = false
	if panel > m.comic.PanelCount {
		m.comic.PanelCount = panel
	}
}

// ReleasePanel gives up a reservation without counting it.
func (m *Manager) ReleasePanel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panelBusy = false
}

// EndComic destroys the comic session and any pending request. It reports
// whether anything was active.
func (m *Manager) EndComic() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	had := m.comic != nil || m.pendingComic != nil
	m.comic = nil
	m.pendingComic = nil
	m.panelBusy = false
	return had
}

// =============================================================================
// STATUS
// =============================================================================

// Status is a snapshot for the header and status bar.
type Status struct {
	Persona      Persona
	ComicActive  bool
	ComicStyle   string
	PanelCount   int
	PendingComic bool
	Confirming   bool
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		Persona:      m.persona,
		PendingComic: m.pendingComic != nil,
		Confirming:   m.pending != nil,
	}
	if m.comic != nil {
		s.ComicActive = true
		s.ComicStyle = m.comic.Style
		s.PanelCount = m.comic.PanelCount
	}
	return s
}
