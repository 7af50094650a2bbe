// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/ipapadil7-star/nexus/internal/util"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completion is one suggestion shown under the input.
type Completion struct {
	Value       string
	Display     string
	Description string
	Score       int
}

// Completer suggests command names, macros, flag names and flag values.
type Completer struct {
	registry *Registry
}

// NewCompleter returns a completer over registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns suggestions for the text before the cursor.
func (c *Completer) Complete(input string) []Completion {
	if !strings.HasPrefix(strings.TrimLeft(input, " "), "/") {
		return nil
	}
	input = strings.TrimLeft(input, " ")
	trailingSpace := strings.HasSuffix(input, " ")
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 && !trailingSpace {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil || len(cmd.Schema) == 0 {
		return nil
	}

	last := ""
	if !trailingSpace {
		last = parts[len(parts)-1]
	}
	if strings.HasPrefix(last, "--") {
		return c.completeFlags(cmd, strings.TrimPrefix(last, "--"))
	}

	// Value position: the token before the partial is a flag name.
	prevIdx := len(parts) - 1
	if !trailingSpace {
		prevIdx--
	}
	if prevIdx >= 1 && strings.HasPrefix(parts[prevIdx], "--") {
		if def, ok := cmd.Schema.Lookup(strings.ToLower(strings.TrimPrefix(parts[prevIdx], "--"))); ok && len(def.Values) > 0 {
			return completeFromList(def.Values, last, def.Description)
		}
	}
	return nil
}

func (c *Completer) completeCommands(partial string) []Completion {
	var out []Completion
	p := strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, p) {
			out = append(out, Completion{
				Value:       cmd.Name,
				Display:     cmd.Usage,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, p),
			})
		}
		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(alias, p) {
				out = append(out, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, p) - 10,
				})
			}
		}
	}

	for _, m := range c.registry.Macros() {
		name := "/" + m.Name
		if strings.HasPrefix(strings.ToLower(name), p) {
			out = append(out, Completion{
				Value:       name,
				Display:     name,
				Description: util.TruncateRunes(m.Text, 40),
				Score:       calculateScore(name, p) - 5,
			})
		}
	}

	sortCompletions(out)
	return out
}

func (c *Completer) completeFlags(cmd *Command, partial string) []Completion {
	var out []Completion
	p := strings.ToLower(partial)
	for _, def := range cmd.Schema {
		if strings.HasPrefix(def.Name, p) {
			out = append(out, Completion{
				Value:       "--" + def.Name,
				Display:     "--" + def.Name,
				Description: def.Description,
				Score:       calculateScore(def.Name, p),
			})
		}
	}
	sortCompletions(out)
	return out
}

func completeFromList(values []string, partial, desc string) []Completion {
	var out []Completion
	p := strings.ToLower(partial)
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), p) {
			out = append(out, Completion{Value: v, Display: v, Description: desc, Score: calculateScore(v, p)})
		}
	}
	sortCompletions(out)
	return out
}

// calculateScore ranks exact matches first, then shorter prefix matches.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	if value == partial {
		return 200
	}
	score := 150 - len(value)
	if partial == "" {
		score -= 50
	}
	return score
}

func sortCompletions(cs []Completion) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Value < cs[j].Value
	})
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState tracks the suggestion list shown in the input box.
type CompletionState struct {
	Completions []Completion
	Selected    int
	Visible     bool
}

// Update replaces the suggestions and selects the first.
func (cs *CompletionState) Update(completions []Completion) {
	cs.Completions = completions
	cs.Selected = 0
	cs.Visible = len(completions) > 0
}

// Next moves the selection down, wrapping.
func (cs *CompletionState) Next() {
	if n := len(cs.Completions); n > 0 {
		cs.Selected = (cs.Selected + 1) % n
	}
}

// Prev moves the selection up, wrapping.
func (cs *CompletionState) Prev() {
	if n := len(cs.Completions); n > 0 {
		cs.Selected = (cs.Selected - 1 + n) % n
	}
}

// Accept returns the selected value, or "".
func (cs *CompletionState) Accept() string {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return ""
	}
	return cs.Completions[cs.Selected].Value
}

// Clear hides the suggestions.
func (cs *CompletionState) Clear() {
	*cs = CompletionState{}
}
