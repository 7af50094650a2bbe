// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for an unknown message id.
	ErrNotFound = errors.New("message not found")
	// ErrImmutable is returned when writing to a complete or errored message.
	ErrImmutable = errors.New("message is finished and cannot change")
	// ErrInvalidTransition is returned for a backwards or unknown status move.
	ErrInvalidTransition = errors.New("invalid generation status transition")
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind says what happened to the timeline.
type EventKind int

const (
	EventAdded EventKind = iota
	EventUpdated
	EventRemoved
	EventCleared
)

// Event is delivered to subscribers after every change, in change order.
// Message is a copy; for EventCleared it is zero.
type Event struct {
	Kind    EventKind
	Message Message
}

// =============================================================================
// TIMELINE
// =============================================================================

// Timeline is the ordered list of messages shown to the user. All writes
// are merge updates keyed by id. It is safe for concurrent use.
type Timeline struct {
	mu       sync.RWMutex
	messages []*Message
	byID     map[string]*Message
	seq      uint64

	// notifyMu is taken before mu is released so subscribers see events in
	// the order the writes happened.
	notifyMu  sync.Mutex
	listeners map[int]func(Event)
	nextSub   int

	now func() time.Time
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{
		byID:      make(map[string]*Message),
		listeners: make(map[int]func(Event)),
		now:       time.Now,
	}
}

// Subscribe registers fn for every change and returns a function that
// removes it. fn runs on the writer's goroutine and must not write to the
// timeline.
func (t *Timeline) Subscribe(fn func(Event)) (unsubscribe func()) {
	t.notifyMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.listeners[id] = fn
	t.notifyMu.Unlock()
	return func() {
		t.notifyMu.Lock()
		delete(t.listeners, id)
		t.notifyMu.Unlock()
	}
}

// unlockAndEmit releases mu and delivers ev while keeping event order.
func (t *Timeline) unlockAndEmit(ev Event) {
	t.notifyMu.Lock()
	t.mu.Unlock()
	defer t.notifyMu.Unlock()
	for _, fn := range t.listeners {
		fn(ev)
	}
}

// Append adds m to the end of the timeline and returns the stored copy.
// Empty ID and CreatedAt are filled in.
func (t *Timeline) Append(m Message) Message {
	t.mu.Lock()
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = t.now()
	}
	t.seq++
	m.Seq = t.seq
	stored := m
	t.messages = append(t.messages, &stored)
	t.byID[stored.ID] = &stored
	t.unlockAndEmit(Event{Kind: EventAdded, Message: stored})
	return stored
}

// AddUser appends a user message.
func (t *Timeline) AddUser(text, attachment string) Message {
	return t.Append(Message{Role: RoleUser, Text: text, Attachment: attachment})
}

// AddModel appends a static model message that never enters the lifecycle.
func (t *Timeline) AddModel(text string) Message {
	return t.Append(Message{Role: RoleModel, Text: text})
}

// AddPlaceholder appends a pending model message for one generation.
func (t *Timeline) AddPlaceholder(kind GenerationType, statusText, source string) Message {
	return t.Append(Message{
		Role:             RoleModel,
		GenerationStatus: StatusPending,
		GenerationType:   kind,
		GenerationText:   statusText,
		SourceText:       source,
	})
}

// Update merges p into the message with id. Status changes must move
// forward; finished messages reject every write.
func (t *Timeline) Update(id string, p Patch) error {
	t.mu.Lock()
	m, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if m.GenerationStatus.Terminal() {
		t.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, ErrImmutable)
	}
	if p.GenerationStatus != nil && !m.GenerationStatus.CanTransition(*p.GenerationStatus) {
		from := m.GenerationStatus
		t.mu.Unlock()
		return fmt.Errorf("update %s from %q to %q: %w", id, from, *p.GenerationStatus, ErrInvalidTransition)
	}
	p.apply(m)
	t.unlockAndEmit(Event{Kind: EventUpdated, Message: *m})
	return nil
}

// Start moves a pending placeholder to generating.
func (t *Timeline) Start(id, statusText string) error {
	return t.Update(id, Patch{
		GenerationStatus: Ptr(StatusGenerating),
		GenerationText:   Ptr(statusText),
	})
}

// Progress restates generating with a new status line and percentage.
func (t *Timeline) Progress(id, statusText string, percent int) error {
	p := Patch{GenerationStatus: Ptr(StatusGenerating), GenerationText: Ptr(statusText)}
	if percent > 0 {
		p.GenerationProgress = Ptr(percent)
	}
	return t.Update(id, p)
}

// Complete merges the final payload and marks the message complete.
func (t *Timeline) Complete(id string, p Patch) error {
	p.GenerationStatus = Ptr(StatusComplete)
	if p.GenerationText == nil {
		p.GenerationText = Ptr("")
	}
	return t.Update(id, p)
}

// Fail marks the message errored with a single user-facing sentence.
func (t *Timeline) Fail(id, text string) error {
	return t.Update(id, Patch{
		GenerationStatus: Ptr(StatusError),
		GenerationText:   Ptr(""),
		Text:             Ptr(text),
	})
}

// AmendPanel replaces the narrative of a finished comic panel. Together
// with SetPanelImage it is the only edit allowed on a finished message.
func (t *Timeline) AmendPanel(panel int, text string) (Message, error) {
	t.mu.Lock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		m := t.messages[i]
		if m.IsComicPanel && m.PanelNumber == panel && m.GenerationStatus == StatusComplete {
			m.Text = text
			out := *m
			t.unlockAndEmit(Event{Kind: EventUpdated, Message: out})
			return out, nil
		}
	}
	t.mu.Unlock()
	return Message{}, fmt.Errorf("panel %d: %w", panel, ErrNotFound)
}

// Panel returns the latest finished comic panel numbered panel.
func (t *Timeline) Panel(panel int) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		m := t.messages[i]
		if m.IsComicPanel && m.PanelNumber == panel && m.GenerationStatus == StatusComplete {
			return *m, true
		}
	}
	return Message{}, false
}

// SetPanelImage swaps the image of a finished comic panel after it was
// redrawn. Only ImageURL changes.
func (t *Timeline) SetPanelImage(panel int, imageURL string) (Message, error) {
	t.mu.Lock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		m := t.messages[i]
		if m.IsComicPanel && m.PanelNumber == panel && m.GenerationStatus == StatusComplete {
			m.ImageURL = imageURL
			out := *m
			t.unlockAndEmit(Event{Kind: EventUpdated, Message: out})
			return out, nil
		}
	}
	t.mu.Unlock()
	return Message{}, fmt.Errorf("panel %d: %w", panel, ErrNotFound)
}

// Get returns a copy of the message with id.
func (t *Timeline) Get(id string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.byID[id]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// Messages returns copies of every message in order.
func (t *Timeline) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = *m
	}
	return out
}

// Len returns the number of messages.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Filter returns the messages visible under an image-style filter: user
// messages, messages without an image, and images rendered in style.
// An empty style returns everything.
func (t *Timeline) Filter(style string) []Message {
	all := t.Messages()
	if style == "" {
		return all
	}
	out := all[:0]
	for _, m := range all {
		if m.Role == RoleUser || m.ImageURL == "" || m.ImageStyle == style {
			out = append(out, m)
		}
	}
	return out
}

// LastError returns the latest model message when it is an error. An
// error followed by another model reply is no longer reported.
func (t *Timeline) LastError() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		m := t.messages[i]
		if m.Role == RoleUser {
			continue
		}
		if m.GenerationStatus == StatusError {
			return *m, true
		}
		return Message{}, false
	}
	return Message{}, false
}

// TruncateFrom removes the message with id and everything after it.
func (t *Timeline) TruncateFrom(id string) ([]Message, error) {
	t.mu.Lock()
	idx := -1
	for i, m := range t.messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		return nil, fmt.Errorf("truncate %s: %w", id, ErrNotFound)
	}
	removed := make([]Message, 0, len(t.messages)-idx)
	for _, m := range t.messages[idx:] {
		removed = append(removed, *m)
		delete(t.byID, m.ID)
	}
	t.messages = t.messages[:idx]
	t.notifyMu.Lock()
	t.mu.Unlock()
	for _, m := range removed {
		for _, fn := range t.listeners {
			fn(Event{Kind: EventRemoved, Message: m})
		}
	}
	t.notifyMu.Unlock()
	return removed, nil
}

// Clear removes every message.
func (t *Timeline) Clear() {
	t.mu.Lock()
	t.messages = nil
	t.byID = make(map[string]*Message)
	t.unlockAndEmit(Event{Kind: EventCleared})
}
