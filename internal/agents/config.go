// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// AGENT CONFIG
// =============================================================================

// Config is the configuration of one agent.
//
// JSON keys match the desktop client's agent config.json. TOML files use
// snake_case keys.
type Config struct {
	// ID is the agent directory name. It is not read from the file.
	ID string `json:"-" toml:"-" yaml:"-"`

	Name            string     `json:"name" toml:"name" yaml:"name"`
	SystemPrompt    string     `json:"systemPrompt" toml:"system_prompt" yaml:"systemPrompt"`
	Model           string     `json:"model" toml:"model" yaml:"model"`
	Temperature     LooseFloat `json:"temperature" toml:"temperature" yaml:"temperature"`
	MaxOutputTokens LooseInt   `json:"maxOutputTokens,omitempty" toml:"max_output_tokens,omitempty" yaml:"maxOutputTokens,omitempty"`
	StreamOutput    LooseBool  `json:"streamOutput" toml:"stream_output" yaml:"streamOutput"`
	// Avatar is a path relative to the agent directory, or absolute.
	Avatar string `json:"avatar,omitempty" toml:"avatar,omitempty" yaml:"avatar,omitempty"`
}

// DisplayName returns the agent name, or its id when unnamed.
func (c *Config) DisplayName() string {
	if c == nil {
		return ""
	}
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.ID
}

// ExpandedSystemPrompt returns the system prompt with {{AgentName}} replaced.
func (c *Config) ExpandedSystemPrompt() string {
	if c == nil {
		return ""
	}
	return strings.ReplaceAll(c.SystemPrompt, "{{AgentName}}", c.DisplayName())
}

// Default returns the config written for a new agent.
func Default(id string) *Config {
	return &Config{
		ID:           id,
		Name:         id,
		SystemPrompt: "You are {{AgentName}}, a helpful assistant.",
		Model:        "gemini-2.5-flash",
		Temperature:  0.7,
		StreamOutput: true,
	}
}

// =============================================================================
// LOOSE SCALARS
// =============================================================================

// The desktop client sometimes stores numbers and booleans as strings. These
// types accept both forms in JSON. TOML and YAML decode them natively.

// LooseFloat is a float64 that also accepts a quoted number.
type LooseFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *LooseFloat) UnmarshalJSON(data []byte) error {
	s := unquote(data)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*f = LooseFloat(v)
	return nil
}

// LooseInt is an int that also accepts a quoted number.
type LooseInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *LooseInt) UnmarshalJSON(data []byte) error {
	s := unquote(data)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", data, err)
	}
	*n = LooseInt(v)
	return nil
}

// LooseBool is a bool that also accepts "true" and "false" strings.
type LooseBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *LooseBool) UnmarshalJSON(data []byte) error {
	s := unquote(data)
	*b = LooseBool(s == "true")
	return nil
}

func unquote(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(data)
}
