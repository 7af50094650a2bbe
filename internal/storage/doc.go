// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists what nexus keeps on disk under the data
// directory (default ~/.nexus):
//
//   - macros.db: user macros in SQLite (modernc.org/sqlite, no cgo)
//   - media/: generated images, videos, audio and documents
//   - cache/previews/: transient video previews, removed once replaced
//   - transcripts/: saved chat transcripts
//
// Macro lists can be exported to and imported from YAML.
package storage
