// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError covers invalid arguments and rejected input.
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	// ExitBlockedError is a safety block or unsupported attachment.
	ExitBlockedError = 6
	ExitTimeoutError = 8
	// ExitRateLimited asks scripts to back off.
	ExitRateLimited = 9
)

// ErrGenerationFailed marks a one-shot run whose final message is an
// error. The message itself has already been printed.
type ErrGenerationFailed struct {
	Category apperr.Category
	Message  string
}

func (e *ErrGenerationFailed) Error() string { return e.Message }

// ExitCode maps an error onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cfgErr config.ValidateErrors
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}

	var failed *ErrGenerationFailed
	if errors.As(err, &failed) {
		return exitForCategory(failed.Category)
	}
	return exitForCategory(apperr.Classify(err).Category)
}

func exitForCategory(c apperr.Category) int {
	switch c {
	case apperr.CredentialInvalid:
		return ExitAuthError
	case apperr.RateLimited:
		return ExitRateLimited
	case apperr.SafetyBlocked, apperr.UnsupportedAttachment:
		return ExitBlockedError
	case apperr.BadRequest:
		return ExitUsageError
	case apperr.TransientNetwork:
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// DisplayError prints err the way the timeline would word it.
func DisplayError(w io.Writer, err error) {
	var failed *ErrGenerationFailed
	if errors.As(err, &failed) {
		return
	}
	var cfgErr config.ValidateErrors
	if errors.As(err, &cfgErr) {
		fmt.Fprintln(w, errorStyle.Render("Konfigurasi tidak valid:"))
		fmt.Fprintln(w, cfgErr.Error())
		return
	}
	fmt.Fprintln(w, errorStyle.Render("✗ "+apperr.Classify(err).Message))
}
