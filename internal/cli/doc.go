// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nexus command line.
//
// Commands:
//
//	nexus                 full-screen interface (line mode when not a terminal)
//	nexus chat            line mode with history
//	nexus ask "<input>"   one message or command, printed, then exit
//	nexus macros list|export|import
//	nexus version
//
// Every mode builds the same App: Gemini backend, macro database, media
// and transcript stores, session manager and orchestrator. The interactive
// modes also run the config watcher and, when configured, the /metrics
// endpoint in the same errgroup.
//
// Exit codes follow the error category of the failure (see ExitCode).
package cli
