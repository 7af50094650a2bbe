// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apperr

import "fmt"

// Category is the user-facing class of a failure.
type Category string

const (
	CredentialInvalid     Category = "credential_invalid"
	RateLimited           Category = "rate_limited"
	SafetyBlocked         Category = "safety_blocked"
	UnsupportedAttachment Category = "unsupported_attachment"
	BadRequest            Category = "bad_request"
	TransientNetwork      Category = "transient_network"
	Unknown               Category = "unknown"
)

// Categories lists every category in classification priority order.
var Categories = []Category{
	CredentialInvalid,
	RateLimited,
	SafetyBlocked,
	UnsupportedAttachment,
	BadRequest,
	TransientNetwork,
	Unknown,
}

// Error is a failure whose category and wording are already known, typically
// a handler rejecting its input before any backend call.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewBadRequest returns a BadRequest error with a formatted message.
func NewBadRequest(format string, args ...any) *Error {
	return &Error{Category: BadRequest, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupported returns an UnsupportedAttachment error with a formatted message.
func NewUnsupported(format string, args ...any) *Error {
	return &Error{Category: UnsupportedAttachment, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a category and message to an underlying error.
func Wrap(cat Category, err error, msg string) *Error {
	return &Error{Category: cat, Message: msg, Err: err}
}
