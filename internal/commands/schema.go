// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ipapadil7-star/nexus/internal/apperr"
)

// =============================================================================
// FLAG DEFINITIONS
// =============================================================================

// ValueType is the type a command expects for a flag.
type ValueType int

const (
	TypeString ValueType = iota
	TypeInt
	TypeBool
)

// FlagDef declares one flag a command understands.
type FlagDef struct {
	Name        string
	Type        ValueType
	Description string

	// Values is a closed set; matching is case-insensitive and the stored
	// value is the canonical entry from Values.
	Values []string

	// Pattern constrains string values; PatternHint names the expected form.
	Pattern     *regexp.Regexp
	PatternHint string

	// Min and Max bound TypeInt values when Max > 0.
	Min, Max int

	// Default applies when the flag is absent.
	Default string

	// Invalid overrides the error text for a bad value.
	Invalid string
}

// Schema is the set of flags one command declares. Keys not in the schema
// are ignored.
type Schema []FlagDef

// Lookup returns the definition for name.
func (s Schema) Lookup(name string) (FlagDef, bool) {
	for _, d := range s {
		if d.Name == name {
			return d, true
		}
	}
	return FlagDef{}, false
}

// =============================================================================
// VALIDATED FLAGS
// =============================================================================

// Flags is the validated, defaulted view of a FlagMap.
type Flags struct {
	values map[string]string
	given  map[string]bool
}

// String returns the validated value or default for name.
func (f Flags) String(name string) string { return f.values[name] }

// Int returns the value for name as an int, or 0.
func (f Flags) Int(name string) int {
	n, _ := strconv.Atoi(f.values[name])
	return n
}

// Bool returns true when name was given as a boolean flag or "true".
func (f Flags) Bool(name string) bool { return f.values[name] == "true" }

// IsSet reports whether the user supplied name explicitly.
func (f Flags) IsSet(name string) bool { return f.given[name] }

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks fm against the schema and applies defaults. The first bad
// flag yields a BadRequest error naming the flag; closed sets are listed in
// the message.
func (s Schema) Validate(fm FlagMap) (Flags, error) {
	out := Flags{values: make(map[string]string), given: make(map[string]bool)}
	for _, def := range s {
		raw, ok := fm[def.Name]
		if !ok {
			if def.Default != "" {
				out.values[def.Name] = def.Default
			}
			continue
		}
		val, err := def.check(raw)
		if err != nil {
			return Flags{}, err
		}
		out.values[def.Name] = val
		out.given[def.Name] = true
	}
	return out, nil
}

func (d FlagDef) check(v FlagValue) (string, error) {
	if d.Type == TypeBool {
		switch {
		case v.Kind == FlagBool:
			return strconv.FormatBool(v.Bool), nil
		case v.Kind == FlagString && (strings.EqualFold(v.Str, "true") || strings.EqualFold(v.Str, "false")):
			return strings.ToLower(v.Str), nil
		default:
			return "", d.fail("--%s cuma bisa true atau false.", d.Name)
		}
	}

	if v.Kind == FlagBool {
		return "", d.fail("--%s butuh nilai.", d.Name)
	}
	if v.Kind == FlagList {
		return "", d.fail("--%s cuma menerima satu nilai, bukan daftar %q.", d.Name, v.String())
	}
	s := strings.TrimSpace(v.Str)
	if s == "" {
		return "", d.fail("--%s butuh nilai.", d.Name)
	}

	if d.Type == TypeInt {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "", d.fail("--%s harus angka, bukan %q.", d.Name, s)
		}
		if d.Max > 0 && (n < d.Min || n > d.Max) {
			return "", d.fail("--%s harus antara %d dan %d.", d.Name, d.Min, d.Max)
		}
		return strconv.Itoa(n), nil
	}

	if len(d.Values) > 0 {
		for _, allowed := range d.Values {
			if strings.EqualFold(allowed, s) {
				return allowed, nil
			}
		}
		sorted := append([]string(nil), d.Values...)
		sort.Strings(sorted)
		return "", d.fail("Nilai --%s %q tidak dikenal. Pilihan: %s.", d.Name, s, strings.Join(sorted, ", "))
	}
	if d.Pattern != nil && !d.Pattern.MatchString(s) {
		return "", d.fail("Format --%s %q salah. Contoh: %s.", d.Name, s, d.PatternHint)
	}
	return s, nil
}

func (d FlagDef) fail(format string, args ...any) error {
	if d.Invalid != "" {
		return apperr.NewBadRequest("%s", d.Invalid)
	}
	return apperr.NewBadRequest(format, args...)
}
