// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPending is returned when resolving without a pending confirmation.
	ErrNoPending = errors.New("no pending confirmation")
	// ErrConfirmationPending is returned when a second request arrives
	// before the first is resolved.
	ErrConfirmationPending = errors.New("a confirmation is already pending")
)

// ConfirmKind names a destructive action waiting for the user.
type ConfirmKind string

const (
	ConfirmClearChat        ConfirmKind = "clear_chat"
	ConfirmStyleChange      ConfirmKind = "style_change"
	ConfirmDeleteCommand    ConfirmKind = "delete_command"
	ConfirmOverwriteCommand ConfirmKind = "overwrite_command"
)

// Confirmation is a pending destructive action and its payload. Persona is
// set for style changes; Name for command deletes and overwrites; Text for
// overwrites.
type Confirmation struct {
	Kind    ConfirmKind
	Persona Persona
	Name    string
	Text    string
}

// Prompt is the question shown to the user.
func (c Confirmation) Prompt() string {
	switch c.Kind {
	case ConfirmClearChat:
		return "Hapus semua pesan dan mulai dari awal?"
	case ConfirmStyleChange:
		return fmt.Sprintf("Ganti persona ke %s? Riwayat chat akan dihapus.", c.Persona.DisplayName())
	case ConfirmDeleteCommand:
		return fmt.Sprintf("Hapus perintah kustom /%s?", c.Name)
	case ConfirmOverwriteCommand:
		return fmt.Sprintf("Perintah /%s sudah ada. Timpa dengan isi baru?", c.Name)
	default:
		return "Lanjutkan?"
	}
}

// RequestConfirmation records c as the pending confirmation.
func (m *Manager) RequestConfirmation(c Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		return ErrConfirmationPending
	}
	m.pending = &c
	return nil
}

// PendingConfirmation returns the pending confirmation, if any.
func (m *Manager) PendingConfirmation() (Confirmation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Confirmation{}, false
	}
	return *m.pending, true
}

// TakeConfirmation removes and returns the pending confirmation. Confirm
// and cancel both go through here, so each request resolves once.
func (m *Manager) TakeConfirmation() (Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Confirmation{}, ErrNoPending
	}
	c := *m.pending
	m.pending = nil
	return c, nil
}
