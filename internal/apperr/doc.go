// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apperr maps failures from handlers and the generative backend onto
// the small set of categories the user is shown.
//
// # Key Types
//
//   - Category: CredentialInvalid, RateLimited, SafetyBlocked,
//     UnsupportedAttachment, BadRequest, TransientNetwork, Unknown
//   - Error: a typed failure raised by handlers with its own wording
//   - Matcher: ordered keyword patterns, first match wins
//
// # Usage
//
//	c := apperr.Classify(err)
//	timeline.Fail(id, c.Message)
package apperr
