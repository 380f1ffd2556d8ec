// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for vcpchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ServerConfig: VCP endpoint and credentials
//   - ChatConfig: default agent and topic, re-render debounce
//   - StorageConfig: history backend and directories
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (VCPCHAT_*)
//   - .env in the working directory, then in the config directory
//   - ~/.vcpchat/config.toml
//   - ~/.vcpchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	delay := cfg.Chat.Debounce()
package config
