// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for nexus.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - GeminiConfig: API key and per-feature model names
//   - ChatConfig: Persona and OCR preference
//   - Watcher: fsnotify-based hot reload of the config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (NEXUS_*, GEMINI_API_KEY, API_KEY)
//   - .env in the working directory, then ~/.nexus/.env
//   - ~/.nexus/config.toml
//   - ~/.nexus/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	gemini, err := backend.NewGemini(ctx, cfg.Backend(), logger)
package config
