// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ipapadil7-star/nexus/internal/commands"
)

// macroFile is the YAML layout used for export and import.
type macroFile struct {
	Version int              `yaml:"version"`
	Macros  []commands.Macro `yaml:"macros"`
}

// ExportMacros writes macros to w as YAML.
func ExportMacros(w io.Writer, macros []commands.Macro) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(macroFile{Version: 1, Macros: macros}); err != nil {
		return fmt.Errorf("encode macros: %w", err)
	}
	return enc.Close()
}

// ImportMacros reads a YAML macro file. Names are validated; entries
// with an empty body are rejected.
func ImportMacros(r io.Reader) ([]commands.Macro, error) {
	var f macroFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode macros: %w", err)
	}
	out := make([]commands.Macro, 0, len(f.Macros))
	for i, m := range f.Macros {
		name, err := commands.NormalizeMacroName(m.Name)
		if err != nil {
			return nil, fmt.Errorf("macro %d: %w", i+1, err)
		}
		if m.Text == "" {
			return nil, fmt.Errorf("macro %s: empty text", name)
		}
		m.Name = name
		out = append(out, m)
	}
	return out, nil
}
