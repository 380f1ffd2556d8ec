// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vcp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// REQUEST MESSAGES
// =============================================================================

// Content part types.
const (
	PartText  = "text"
	PartImage = "image_url"
	PartAudio = "audio_url"
)

// MediaURL wraps a URL for image and audio parts.
type MediaURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a multi-part message body.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *MediaURL `json:"image_url,omitempty"`
	AudioURL *MediaURL `json:"audio_url,omitempty"`
}

// TextPart creates a text part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart creates an image part from a URL, usually a data URL.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImage, ImageURL: &MediaURL{URL: url}}
}

// AudioPart creates an audio part from a URL, usually a data URL.
func AudioPart(url string) ContentPart {
	return ContentPart{Type: PartAudio, AudioURL: &MediaURL{URL: url}}
}

// Message is a chat message as sent to the server. The body is either plain
// text or, when Parts is non-nil, an array of parts.
type Message struct {
	Role  string
	Text  string
	Parts []ContentPart
}

// NewTextMessage creates a plain-text message.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Text: text}
}

// NewPartsMessage creates a multi-part message.
func NewPartsMessage(role string, parts ...ContentPart) Message {
	if parts == nil {
		parts = []ContentPart{}
	}
	return Message{Role: role, Parts: parts}
}

// PlainText returns Text, or the concatenated text parts of a multi-part body.
func (m Message) PlainText() string {
	if m.Parts == nil {
		return m.Text
	}
	var buf bytes.Buffer
	for _, p := range m.Parts {
		if p.Type == PartText {
			buf.WriteString(p.Text)
		}
	}
	return buf.String()
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes content as a string or as a parts array.
func (m Message) MarshalJSON() ([]byte, error) {
	var (
		content []byte
		err     error
	)
	if m.Parts != nil {
		content, err = json.Marshal(m.Parts)
	} else {
		content, err = json.Marshal(m.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Role: m.Role, Content: content})
}

// UnmarshalJSON accepts either content form.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Text = ""
	m.Parts = nil

	content := bytes.TrimSpace(w.Content)
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
		return nil
	case content[0] == '"':
		return json.Unmarshal(content, &m.Text)
	case content[0] == '[':
		return json.Unmarshal(content, &m.Parts)
	default:
		return fmt.Errorf("unsupported message content: %s", content)
	}
}

// =============================================================================
// REQUEST AND RESULT
// =============================================================================

// ModelConfig carries the sampling settings merged into the request body.
type ModelConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Stream      bool    `json:"stream"`
}

// Request is one completion call.
type Request struct {
	// ServerURL is the full chat completions endpoint.
	ServerURL string
	APIKey    string
	Messages  []Message
	ModelConfig
	// CorrelationID tags every streamed event for this request. It is the id
	// of the message that will receive the reply.
	CorrelationID string
}

// Choice is one non-streaming completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Result describes how a completion call went.
//
// For streaming requests exactly one of StreamingStarted or StreamError is
// set. For single-shot requests either Choices or Error is set.
type Result struct {
	StreamingStarted bool
	StreamError      string
	Choices          []Choice
	Error            string
}

// Content returns the text of the first choice.
func (r *Result) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.PlainText()
}

// chatRequest is the request body posted to the server.
type chatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// chatResponse is a single-shot response body.
type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}
