// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend defines the generative capabilities nexus needs and
// implements them on the Gemini API through google.golang.org/genai.
//
// # Key Types
//
//   - Backend: text, image, video, audio, document, chat and story calls
//   - Gemini: the genai implementation
//   - VideoEvent: one item of the progress stream returned by PollVideo
//
// Handlers never see genai types; tests use backendtest.Fake.
package backend
