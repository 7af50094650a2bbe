// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"unicode"

	"github.com/ipapadil7-star/nexus/internal/util"
)

// =============================================================================
// FLAG VALUES
// =============================================================================

// FlagKind is the shape of a parsed flag value.
type FlagKind int

const (
	FlagString FlagKind = iota
	FlagBool
	FlagList
)

// FlagValue is one parsed --key value.
type FlagValue struct {
	Kind FlagKind
	Str  string
	Bool bool
	List []string
}

// String renders the value the way it could be typed back.
func (v FlagValue) String() string {
	switch v.Kind {
	case FlagBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case FlagList:
		return strings.Join(v.List, ",")
	default:
		return v.Str
	}
}

// FlagMap holds every flag found in the input, keyed by lower-case name.
type FlagMap map[string]FlagValue

// Get returns the value for key.
func (m FlagMap) Get(key string) (FlagValue, bool) {
	v, ok := m[strings.ToLower(key)]
	return v, ok
}

// =============================================================================
// PARSER
// =============================================================================

// ParseFlags extracts --key flags from raw and returns the remaining text,
// trimmed and with whitespace collapsed, and the flags found.
//
// Recognized forms, scanned left to right (later duplicates win):
//
//	--key "double quoted"
//	--key 'single quoted'
//	--key bare            (a bare value with commas becomes a list)
//	--key                 (no value: boolean true)
//
// A flag must start at the beginning of the text, after whitespace, or
// right after another flag. ParseFlags never fails; applying it to its own
// cleaned output yields no flags.
func ParseFlags(raw string) (string, FlagMap) {
	flags := FlagMap{}
	var text strings.Builder
	rs := []rune(raw)
	n := len(rs)
	boundary := true

	for i := 0; i < n; {
		if boundary && isFlagStart(rs, i) {
			if key, val, next, ok := scanFlag(rs, i); ok {
				flags[key] = val
				text.WriteByte(' ')
				i = next
				continue
			}
		}
		text.WriteRune(rs[i])
		boundary = unicode.IsSpace(rs[i])
		i++
	}

	return util.CollapseSpaces(text.String()), flags
}

// scanFlag reads one flag starting at i. It reports false for forms such as
// "--key=value" that stay in the text.
func scanFlag(rs []rune, i int) (string, FlagValue, int, bool) {
	n := len(rs)
	keyEnd := i + 2
	for keyEnd < n && isKeyRune(rs[keyEnd]) {
		keyEnd++
	}
	if keyEnd < n && !unicode.IsSpace(rs[keyEnd]) && !isQuote(rs[keyEnd]) && !isFlagStart(rs, keyEnd) {
		return "", FlagValue{}, 0, false
	}
	val, next := scanFlagValue(rs, keyEnd)
	return strings.ToLower(string(rs[i+2 : keyEnd])), val, next, true
}

// scanFlagValue reads the value after a key ending at pos. It returns the
// value and the index just past what it consumed.
func scanFlagValue(rs []rune, pos int) (FlagValue, int) {
	n := len(rs)
	j := pos
	for j < n && unicode.IsSpace(rs[j]) {
		j++
	}
	if j >= n || isFlagStart(rs, j) {
		return FlagValue{Kind: FlagBool, Bool: true}, pos
	}
	if j == pos {
		// Value glued to the key, e.g. --key"x": treat the key as boolean.
		return FlagValue{Kind: FlagBool, Bool: true}, pos
	}

	if isQuote(rs[j]) {
		q := rs[j]
		for k := j + 1; k < n; k++ {
			if rs[k] == q {
				return FlagValue{Kind: FlagString, Str: string(rs[j+1 : k])}, k + 1
			}
		}
		// Unterminated quote: the key stands alone.
		return FlagValue{Kind: FlagBool, Bool: true}, pos
	}

	k := j
	for k < n && !unicode.IsSpace(rs[k]) && !isQuote(rs[k]) {
		k++
	}
	if k < n && isQuote(rs[k]) {
		// Bare words cannot contain quotes.
		return FlagValue{Kind: FlagBool, Bool: true}, pos
	}
	bare := string(rs[j:k])
	if strings.Contains(bare, ",") {
		var list []string
		for _, part := range strings.Split(bare, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		return FlagValue{Kind: FlagList, List: list}, k
	}
	return FlagValue{Kind: FlagString, Str: bare}, k
}

func isFlagStart(rs []rune, i int) bool {
	return i+2 < len(rs) && rs[i] == '-' && rs[i+1] == '-' && isKeyRune(rs[i+2])
}

func isKeyRune(r rune) bool {
	return r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func isQuote(r rune) bool {
	return r == '"' || r == '\''
}
