// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"sort"
	"strings"
)

// categoryOrder puts the generation commands first in help.
var categoryOrder = []string{"Gambar", "Video & Audio", "Dokumen & Teks", "Komik", "Sesi", "Umum"}

// HelpText renders the command reference as Markdown.
func (r *Registry) HelpText() string {
	var b strings.Builder
	b.WriteString("# Daftar Perintah NEXUS\n\n")

	groups := r.ByCategory()
	seen := make(map[string]bool)
	cats := append([]string(nil), categoryOrder...)
	var extra []string
	for cat := range groups {
		if !contains(categoryOrder, cat) {
			extra = append(extra, cat)
		}
	}
	sort.Strings(extra)
	cats = append(cats, extra...)

	for _, cat := range cats {
		cmds := groups[cat]
		if len(cmds) == 0 || seen[cat] {
			continue
		}
		seen[cat] = true
		fmt.Fprintf(&b, "## %s\n\n", cat)
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&b, "- `%s` %s", usage, cmd.Description)
			if len(cmd.Aliases) > 0 {
				fmt.Fprintf(&b, " (alias: %s)", strings.Join(cmd.Aliases, ", "))
			}
			b.WriteByte('\n')
			for _, def := range cmd.Schema {
				fmt.Fprintf(&b, "  - `--%s` %s", def.Name, def.Description)
				if len(def.Values) > 0 {
					fmt.Fprintf(&b, " [%s]", strings.Join(def.Values, ", "))
				}
				if def.Default != "" {
					fmt.Fprintf(&b, " (default %s)", def.Default)
				}
				b.WriteByte('\n')
			}
		}
		b.WriteByte('\n')
	}

	if macros := r.Macros(); len(macros) > 0 {
		b.WriteString("## Perintah Kustom\n\n")
		for _, m := range macros {
			fmt.Fprintf(&b, "- `/%s` → %s\n", m.Name, m.Text)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Saat komik aktif, ketik `lanjutkan` (plus arahan) untuk panel berikutnya.\n")
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
