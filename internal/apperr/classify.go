// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apperr

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/ipapadil7-star/nexus/internal/util"
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classification is what the timeline shows for a failed generation.
type Classification struct {
	Category Category
	// Message is a single user-facing sentence (plus detail for Unknown).
	Message string
	// Retryable is a hint for the UI; every error message keeps its retry
	// affordance.
	Retryable bool
}

// Messages for context errors.
const (
	CanceledMessage = "Permintaan dibatalkan sebelum selesai."
	DeadlineMessage = "Server kelamaan merespons. Coba lagi sebentar lagi."
)

// Pattern matches raw error text onto a category.
type Pattern struct {
	// Keywords are matched case-insensitively; any one is enough.
	Keywords []string
	Category Category
	Message  string
}

// Matcher holds patterns in priority order.
type Matcher struct {
	mu       sync.RWMutex
	patterns []Pattern
}

var (
	defaultMatcher     *Matcher
	defaultMatcherOnce sync.Once
)

// Default returns the shared matcher with the built-in patterns.
func Default() *Matcher {
	defaultMatcherOnce.Do(func() {
		defaultMatcher = NewMatcher()
	})
	return defaultMatcher
}

// NewMatcher returns a matcher loaded with the built-in patterns.
func NewMatcher() *Matcher {
	m := &Matcher{}
	m.registerDefaults()
	return m
}

// Patterns are registered in Categories order: the first match wins.
func (m *Matcher) registerDefaults() {
	m.AddPattern(Pattern{
		Keywords: []string{"api key not valid", "api_key_invalid", "invalid api key", "unauthenticated", "permission_denied", "api key expired"},
		Category: CredentialInvalid,
		Message:  "Kunci API tidak valid. Cek GEMINI_API_KEY kamu lalu coba lagi.",
	})
	m.AddPattern(Pattern{
		Keywords: []string{"429", "resource_exhausted", "rate limit", "quota", "too many requests"},
		Category: RateLimited,
		Message:  "Kebanyakan permintaan. Tunggu sebentar lalu coba lagi.",
	})
	m.AddPattern(Pattern{
		Keywords: []string{"safety", "blocked", "prohibited_content", "raimediafiltered", "rai_filtered", "responsible ai"},
		Category: SafetyBlocked,
		Message:  "Permintaan ini diblokir filter keamanan. Coba ubah deskripsinya.",
	})
	m.AddPattern(Pattern{
		Keywords: []string{"unsupported mime", "unsupported file", "mime type", "tipe file tidak didukung"},
		Category: UnsupportedAttachment,
		Message:  "Tipe file ini tidak didukung.",
	})
	m.AddPattern(Pattern{
		Keywords: []string{"invalid_argument", "invalid argument", "400 bad request", "error 400"},
		Category: BadRequest,
		Message:  "Permintaannya tidak valid. Cek lagi perintah dan opsinya.",
	})
	m.AddPattern(Pattern{
		Keywords: []string{
			"deadline exceeded", "timeout", "timed out", "connection refused",
			"connection reset", "no such host", "network is unreachable",
			"unexpected eof", "503", "unavailable", "502", "bad gateway",
		},
		Category: TransientNetwork,
		Message:  "Koneksi ke server bermasalah. Coba lagi sebentar lagi.",
	})
}

// AddPattern appends a pattern with the lowest priority so far.
func (m *Matcher) AddPattern(p Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, p)
}

// Match returns the first pattern whose keywords appear in msg.
func (m *Matcher) Match(msg string) (Pattern, bool) {
	lower := strings.ToLower(msg)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patterns {
		for _, kw := range p.Keywords {
			if strings.Contains(lower, kw) {
				return p, true
			}
		}
	}
	return Pattern{}, false
}

// Classify maps err with the default matcher.
func Classify(err error) Classification {
	return Default().Classify(err)
}

// Classify maps err onto a category. Typed *Error values keep their own
// category and wording; context cancellation and deadline come next, then
// the keyword patterns, then net.Error, then Unknown.
func (m *Matcher) Classify(err error) Classification {
	if err == nil {
		return Classification{Category: Unknown, Message: unknownMessage(""), Retryable: true}
	}

	var typed *Error
	if errors.As(err, &typed) {
		return Classification{
			Category:  typed.Category,
			Message:   typed.Message,
			Retryable: retryable(typed.Category),
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Classification{Category: Unknown, Message: CanceledMessage, Retryable: true}
	case errors.Is(err, context.DeadlineExceeded):
		return Classification{Category: TransientNetwork, Message: DeadlineMessage, Retryable: true}
	}

	if p, ok := m.Match(err.Error()); ok {
		return Classification{Category: p.Category, Message: p.Message, Retryable: retryable(p.Category)}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{
			Category:  TransientNetwork,
			Message:   "Koneksi ke server bermasalah. Coba lagi sebentar lagi.",
			Retryable: true,
		}
	}

	return Classification{Category: Unknown, Message: unknownMessage(err.Error()), Retryable: true}
}

func unknownMessage(detail string) string {
	const base = "Waduh, ada yang error."
	detail = util.CollapseSpaces(detail)
	if detail == "" {
		return base
	}
	return base + " (" + util.TruncateRunes(detail, 120) + ")"
}

func retryable(c Category) bool {
	switch c {
	case BadRequest, UnsupportedAttachment, CredentialInvalid:
		return false
	default:
		return true
	}
}
