// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripting against vcpchat.

package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
)

// JSONResponse is the response envelope of every --json command.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// TopicListData is returned by history list.
type TopicListData struct {
	Topics []storage.TopicMeta `json:"topics"`
	Count  int                 `json:"count"`
}

// TopicData is returned by history show.
type TopicData struct {
	AgentID  string          `json:"agent_id"`
	TopicID  string          `json:"topic_id"`
	Messages []model.Message `json:"messages"`
}

// AgentData describes one agent in agents list and agents show.
type AgentData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	StreamOutput bool    `json:"stream_output"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Avatar       string  `json:"avatar,omitempty"`
	Dir          string  `json:"dir"`
}

// ExportData is returned by export.
type ExportData struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// ConfigData is returned by config show and config path.
type ConfigData struct {
	Path   string      `json:"config_path"`
	Config interface{} `json:"config,omitempty"`
}
