// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/vcpchat-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations to JSON format.
// The messages array uses the history file schema, so it can be dropped into
// another topic directory as history.json.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonExport struct {
	Agent     string          `json:"agent"`
	AgentName string          `json:"agent_name,omitempty"`
	Topic     string          `json:"topic"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Messages  []model.Message `json:"messages"`
}

// Export converts a conversation to JSON format. Options do not filter JSON
// output.
func (e *JSONExporter) Export(conv *Conversation) ([]byte, error) {
	if err := conv.validate(); err != nil {
		return nil, err
	}
	out := jsonExport{
		Agent:     conv.AgentID,
		AgentName: conv.AgentName,
		Topic:     conv.TopicID,
		Messages:  conv.exportable(),
	}
	if !conv.UpdatedAt.IsZero() {
		t := conv.UpdatedAt
		out.UpdatedAt = &t
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
