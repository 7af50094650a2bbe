// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generate holds one handler per generation command. Each handler
// validates its own input before calling the backend, pushes progress to
// its placeholder and returns the payload the orchestrator merges in on
// completion.
package generate
