// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the chat timeline and the messages in it.
//
// # Key Types
//
//   - Message: one timeline entry, user or model, with optional media and a
//     generation status for placeholders
//   - Patch: a partial update merged into a message by id
//   - Timeline: the ordered message list; it owns the placeholder lifecycle
//     pending -> generating -> complete|error and rejects writes to
//     finished messages
//   - Attachment: a user file read from disk with its MIME type
//
// # Usage
//
//	tl := model.NewTimeline()
//	ph := tl.AddPlaceholder(model.GenImage, "Lagi gambar...")
//	_ = tl.Start(ph.ID, "Menghubungi model...")
//	_ = tl.Complete(ph.ID, model.Patch{ImageURL: model.Ptr(path)})
package model
