// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the long-lived state that outlives one submission:
// the persona-bound chat session, the single comic session, and the one
// pending confirmation.
//
// Handlers read session handles through the Manager; only the Manager
// creates, replaces or clears them.
package session
