// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for vcpchat.
//
// Running vcpchat with no command starts the chat TUI. The other commands
// work on the same data directory without a terminal UI, which makes them
// usable from scripts.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global and command-specific flags
//   - Env: Loaded config, logger, history store and agent registry
//   - JSONResponse: Envelope of every --json output
//
// # Usage
//
//	cmd, args := cli.Parse()
//	os.Exit(cli.Run(cmd, args))
//
// # Commands Overview
//
//   - tui: Full-screen chat (default)
//   - export: Write a topic as HTML, Markdown or JSON
//   - history: List, show and delete stored topics
//   - agents: List, show and create agents
//   - config: Show and edit ~/.vcpchat/config.toml
//   - version: Build information
//
// Errors are printed once by Run and mapped to exit codes; see GetExitCode.
package cli
