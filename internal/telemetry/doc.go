// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records generation metrics for nexus.
//
// Metrics live in a private Prometheus registry and are served on
// /metrics when an address is configured:
//
//	m := telemetry.New()
//	orch := orchestrator.New(orchestrator.Deps{..., Metrics: m})
//	go m.Serve(ctx, ":9090", logger)
package telemetry
