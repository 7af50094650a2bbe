// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands turns raw chat input into something the orchestrator can
// dispatch: a command name, cleaned text, and a flag map.
//
// # Key Types
//
//   - Input: the command name and raw argument text of one submission
//   - FlagMap: every --key found by ParseFlags, before any validation
//   - Schema / Flags: a command's declared flags and the validated result
//   - Command: a built-in, either local or a generation command
//   - Registry: built-ins, aliases and user macros, case-insensitive
//   - Invocation: what a generation handler receives
//   - Completer: prefix completion for commands, macros and flag values
//
// # Usage
//
//	reg := commands.NewRegistry(store)
//	in := commands.ParseInput("/gambar kucing --style anime")
//	in, _, err := reg.Expand(in)
//	cmd := reg.Get(in.Name)
//	text, fm := commands.ParseFlags(in.Args)
//	flags, err := cmd.Schema.Validate(fm)
//
// Macros expand exactly once. A macro whose text starts with another macro
// is rejected rather than expanded again.
package commands
