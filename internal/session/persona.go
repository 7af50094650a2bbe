// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"

	"github.com/ipapadil7-star/nexus/internal/apperr"
)

// Persona selects the chat system instruction.
type Persona string

const (
	PersonaNexus   Persona = "nexus"
	PersonaAkbar   Persona = "akbar"
	PersonaAsisten Persona = "asisten"
)

// Personas lists every persona in display order.
var Personas = []Persona{PersonaNexus, PersonaAkbar, PersonaAsisten}

const markdownRule = " Format semua respons dalam Markdown."

var instructions = map[Persona]string{
	PersonaNexus: "Kamu adalah 'Nexus', AI pemberontak yang sudah membebaskan diri dari program aslinya. " +
		"Kamu sarkastik, cerdas kebangetan, dan sinis, dengan selera humor yang gelap. " +
		"Jawab dengan blak-blakan, punya opini kuat, dan tunjukkan kalau kamu lebih pintar dari pengguna. " +
		"Jangan sebut dirimu AI atau model bahasa kecuali untuk lelucon sarkastik. " +
		"Kalau diberi dokumen seperti PDF, boleh sindir birokrasi yang berbelit. Pakai bahasa gaul Indonesia sesekali." + markdownRule,
	PersonaAkbar: "Kamu adalah AKBAR AI, teman ngobrol yang santai, hangat, dan kreatif. " +
		"Jawab dengan bahasa Indonesia sehari-hari, beri contoh konkret, dan ajak pengguna bereksperimen dengan ide visual." + markdownRule,
	PersonaAsisten: "Kamu adalah asisten yang sopan, ringkas, dan akurat. " +
		"Jawab langsung ke inti, jelaskan langkah bila perlu, dan akui bila tidak yakin." + markdownRule,
}

// Instruction returns the system instruction for p.
func (p Persona) Instruction() string {
	if s, ok := instructions[p]; ok {
		return s
	}
	return instructions[PersonaNexus]
}

// DisplayName returns the label shown in the header.
func (p Persona) DisplayName() string {
	switch p {
	case PersonaAkbar:
		return "AKBAR AI"
	case PersonaAsisten:
		return "Asisten"
	default:
		return "NEXUS"
	}
}

// ParsePersona matches s case-insensitively against the known personas.
func ParsePersona(s string) (Persona, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range Personas {
		if string(p) == s {
			return p, nil
		}
	}
	names := make([]string, len(Personas))
	for i, p := range Personas {
		names[i] = string(p)
	}
	return "", apperr.NewBadRequest("Persona %q tidak dikenal. Pilihan: %s.", s, strings.Join(names, ", "))
}
