// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/model"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Handler runs one generation. It may push progress through inv and
// returns the payload merged into the placeholder on completion.
type Handler func(ctx context.Context, inv *Invocation) (model.Patch, error)

// LocalHandler runs a command that never creates a placeholder.
type LocalHandler func(ctx context.Context, args string) error

// Command is a built-in slash command.
type Command struct {
	// Name is the primary name, e.g. "/gambar".
	Name    string
	Aliases []string

	Description string
	Usage       string
	Category    string
	Hidden      bool

	// Exactly one of Generate and Local is set.
	Generate Handler
	Local    LocalHandler

	// Schema declares the flags Generate understands.
	Schema Schema

	// Type and Status seed the placeholder.
	Type   model.GenerationType
	Status string
}

// IsLocal reports whether the command is handled without the lifecycle.
func (c *Command) IsLocal() bool { return c.Local != nil }

// =============================================================================
// INVOCATION
// =============================================================================

// Updater is the part of the timeline a handler may write to.
type Updater interface {
	Update(id string, p model.Patch) error
	Progress(id, statusText string, percent int) error
}

// Invocation is everything one generation handler gets.
type Invocation struct {
	Command *Command

	// Input is the user text after macro expansion.
	Input string
	// Text is Input minus the command name and flags.
	Text  string
	Flags Flags
	// RawFlags keeps every parsed flag, including ones the schema ignores.
	RawFlags FlagMap

	Attachment    *model.Attachment
	PlaceholderID string
	Timeline      Updater
}

// Status pushes a status line (and optional percentage) to the placeholder.
func (inv *Invocation) Status(text string, percent int) error {
	return inv.Timeline.Progress(inv.PlaceholderID, text, percent)
}

// Update merges a partial update into the placeholder.
func (inv *Invocation) Update(p model.Patch) error {
	return inv.Timeline.Update(inv.PlaceholderID, p)
}

// =============================================================================
// MACROS
// =============================================================================

// MaxMacroNameLen is the longest allowed macro name.
const MaxMacroNameLen = 20

var macroNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Macro is a user-defined command that expands to stored text.
type Macro struct {
	Name      string    `json:"name" yaml:"name"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// MacroStore persists macros.
type MacroStore interface {
	ListMacros(ctx context.Context) ([]Macro, error)
	SaveMacro(ctx context.Context, m Macro) error
	DeleteMacro(ctx context.Context, name string) error
}

// ErrMacroNotFound is returned when deleting an unknown macro.
var ErrMacroNotFound = errors.New("macro not found")

// NormalizeMacroName strips a leading slash and checks the name.
func NormalizeMacroName(name string) (string, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	switch {
	case name == "":
		return "", apperr.NewBadRequest("Nama perintah kosong.")
	case len(name) > MaxMacroNameLen:
		return "", apperr.NewBadRequest("Nama perintah maksimal %d karakter.", MaxMacroNameLen)
	case !macroNameRe.MatchString(name):
		return "", apperr.NewBadRequest("Nama perintah cuma boleh huruf, angka, dan garis bawah.")
	}
	return name, nil
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds built-in commands, their aliases, and user macros. Names
// are matched case-insensitively. Macros never shadow built-ins.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	aliases  map[string]*Command
	macros   map[string]Macro
	store    MacroStore
}

// NewRegistry returns an empty registry backed by store (which may be nil
// for an in-memory macro list).
func NewRegistry(store MacroStore) *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
		macros:   make(map[string]Macro),
		store:    store,
	}
}

// key folds name for lookups. A Caser keeps state, so each call gets its own.
func (r *Registry) key(name string) string {
	return cases.Fold().String(strings.TrimPrefix(name, "/"))
}

// Register adds a command and its aliases.
func (r *Registry) Register(cmd *Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[r.key(cmd.Name)] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[r.key(alias)] = cmd
	}
}

// Get returns the built-in command for a name or alias, or nil.
func (r *Registry) Get(name string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(name)
}

func (r *Registry) getLocked(name string) *Command {
	k := r.key(name)
	if cmd, ok := r.commands[k]; ok {
		return cmd
	}
	return r.aliases[k]
}

// All returns the built-in commands sorted by name.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory groups visible commands by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		cat := cmd.Category
		if cat == "" {
			cat = "Umum"
		}
		result[cat] = append(result[cat], cmd)
	}
	return result
}

// -----------------------------------------------------------------------------
// Macros
// -----------------------------------------------------------------------------

// LoadMacros replaces the in-memory macro list with the store's contents.
func (r *Registry) LoadMacros(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	list, err := r.store.ListMacros(ctx)
	if err != nil {
		return fmt.Errorf("load macros: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.macros = make(map[string]Macro, len(list))
	for _, m := range list {
		r.macros[r.key(m.Name)] = m
	}
	return nil
}

// Macro returns the macro called name.
func (r *Registry) Macro(name string) (Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.macros[r.key(name)]
	return m, ok
}

// Macros returns every macro sorted by name.
func (r *Registry) Macros() []Macro {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Macro, 0, len(r.macros))
	for _, m := range r.macros {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return r.key(out[i].Name) < r.key(out[j].Name) })
	return out
}

// CheckMacro validates a macro definition without saving it. It reports
// whether a macro with the same name already exists.
func (r *Registry) CheckMacro(name, text string) (string, bool, error) {
	name, err := NormalizeMacroName(name)
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(text) == "" {
		return "", false, apperr.NewBadRequest("Isi perintah /%s kosong.", name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.getLocked(name) != nil {
		return "", false, apperr.NewBadRequest("/%s sudah dipakai perintah bawaan.", name)
	}
	_, exists := r.macros[r.key(name)]
	return name, exists, nil
}

// SaveMacro creates or overwrites a macro and persists it.
func (r *Registry) SaveMacro(ctx context.Context, name, text string) (Macro, error) {
	name, _, err := r.CheckMacro(name, text)
	if err != nil {
		return Macro{}, err
	}
	now := time.Now()
	m := Macro{Name: name, Text: strings.TrimSpace(text), CreatedAt: now, UpdatedAt: now}
	if old, ok := r.Macro(name); ok {
		m.CreatedAt = old.CreatedAt
	}
	if r.store != nil {
		if err := r.store.SaveMacro(ctx, m); err != nil {
			return Macro{}, fmt.Errorf("save macro %s: %w", name, err)
		}
	}
	r.mu.Lock()
	r.macros[r.key(name)] = m
	r.mu.Unlock()
	return m, nil
}

// DeleteMacro removes a macro.
func (r *Registry) DeleteMacro(ctx context.Context, name string) error {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if _, ok := r.Macro(name); !ok {
		return fmt.Errorf("/%s: %w", name, ErrMacroNotFound)
	}
	if r.store != nil {
		if err := r.store.DeleteMacro(ctx, name); err != nil {
			return fmt.Errorf("delete macro %s: %w", name, err)
		}
	}
	r.mu.Lock()
	delete(r.macros, r.key(name))
	r.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

// Expand substitutes a macro invocation with its text plus any trailing
// arguments and re-parses the result. Built-ins, plain text and unknown
// names come back unchanged with a nil macro. Expansion happens once: a
// macro whose text invokes another macro is a BadRequest.
func (r *Registry) Expand(in Input) (Input, *Macro, error) {
	if !in.IsCommand || r.Get(in.Name) != nil {
		return in, nil, nil
	}
	m, ok := r.Macro(in.Name)
	if !ok {
		return in, nil, nil
	}

	text := m.Text
	if in.Args != "" {
		text += " " + in.Args
	}
	out := ParseInput(text)
	if out.IsCommand && r.Get(out.Name) == nil {
		if inner, nested := r.Macro(out.Name); nested {
			return in, &m, apperr.NewBadRequest("/%s memanggil perintah kustom lain (/%s). Perintah kustom tidak boleh bersarang.", m.Name, inner.Name)
		}
	}
	return out, &m, nil
}
