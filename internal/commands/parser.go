// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"unicode"
)

// =============================================================================
// INPUT
// =============================================================================

// Input is one submission split into command name and raw arguments.
type Input struct {
	// Raw is the trimmed original text.
	Raw string

	// IsCommand is true when Raw starts with "/".
	IsCommand bool

	// Name is the lower-cased command token including the slash, e.g. "/gambar".
	Name string

	// Args is everything after the command token, trimmed.
	Args string
}

// ParseInput splits raw into command name and arguments. Text that does not
// start with "/" is returned with IsCommand false and Args set to the text.
func ParseInput(raw string) Input {
	raw = strings.TrimSpace(raw)
	in := Input{Raw: raw}
	if !strings.HasPrefix(raw, "/") {
		in.Args = raw
		return in
	}
	in.IsCommand = true

	end := strings.IndexFunc(raw, unicode.IsSpace)
	if end < 0 {
		in.Name = strings.ToLower(raw)
		return in
	}
	in.Name = strings.ToLower(raw[:end])
	in.Args = strings.TrimSpace(raw[end:])
	return in
}

// IsCommand reports whether input starts with "/".
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// =============================================================================
// POSITIONAL ARGUMENTS
// =============================================================================

// SplitArgs splits text into whitespace separated tokens. Single or double
// quotes group words; a backslash escapes a quote inside quotes.
func SplitArgs(text string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	inToken := false

	rs := []rune(text)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case quote != 0 && r == '\\' && i+1 < len(rs) && (rs[i+1] == quote || rs[i+1] == '\\'):
			cur.WriteRune(rs[i+1])
			i++
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			inToken = true
		case quote == 0 && unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// FirstWord splits text into its first whitespace-delimited word and the
// trimmed remainder.
func FirstWord(text string) (string, string) {
	text = strings.TrimSpace(text)
	end := strings.IndexFunc(text, unicode.IsSpace)
	if end < 0 {
		return text, ""
	}
	return text[:end], strings.TrimSpace(text[end:])
}
