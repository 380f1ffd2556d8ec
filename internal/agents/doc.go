// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agents loads agent configurations from disk.
//
// Each agent lives in its own directory under the registry root and is
// described by config.toml, config.yaml or config.json (checked in that
// order). An avatar.png next to the config is picked up automatically.
//
// # Key Types
//
//   - Config: name, system prompt and model settings of one agent
//   - Registry: cached lookup, listing, saving and fsnotify hot reload
//
// # Usage
//
//	reg := agents.NewRegistry(filepath.Join(dataDir, "agents"), logger)
//	defer reg.Close()
//
//	cfg, err := reg.AgentConfig(ctx, "nova")
//	if errors.Is(err, agents.ErrAgentNotFound) {
//		// first run
//	}
//
//	reg.Watch(0, func(id string) { log.Printf("agent %s changed", id) })
package agents
