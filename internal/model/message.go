// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jeranaias/vcpchat-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "AI"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// AttachmentKind classifies an attachment by its declared media type.
type AttachmentKind int

const (
	KindFile AttachmentKind = iota
	KindImage
	KindAudio
	KindVideo
)

// Attachment is a file attached to a message.
type Attachment struct {
	// Type is the declared MIME type, e.g. "image/png".
	Type string `json:"type"`
	// Src is a local path or URL. Local files may carry a file:// prefix.
	Src string `json:"src"`
	// Name is the display name.
	Name string `json:"name"`
}

// Kind returns the media kind derived from the MIME type.
func (a Attachment) Kind() AttachmentKind {
	switch {
	case strings.HasPrefix(a.Type, "image/"):
		return KindImage
	case strings.HasPrefix(a.Type, "audio/"):
		return KindAudio
	case strings.HasPrefix(a.Type, "video/"):
		return KindVideo
	default:
		return KindFile
	}
}

// Path returns Src with any file:// prefix removed.
func (a Attachment) Path() string {
	return strings.TrimPrefix(a.Src, "file://")
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single chat message.
//
// Content is always the raw accumulated text. Anything rendered from it is
// derived and disposable. JSON keys match the history files written by the
// desktop client so both can share a data directory.
type Message struct {
	ID           string       `json:"id"`
	Role         Role         `json:"role"`
	Content      string       `json:"content"`
	Timestamp    int64        `json:"timestamp"` // unix milliseconds
	IsThinking   bool         `json:"isThinking,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	FinishReason string       `json:"finishReason,omitempty"`
}

// NewMessage creates a new message with a generated ID and the current time.
func NewMessage(role Role, content string) Message {
	now := NowMillis()
	return Message{
		ID:        GenerateID("msg", now),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string, attachments ...Attachment) Message {
	msg := NewMessage(RoleUser, content)
	msg.Attachments = attachments
	return msg
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewThinkingMessage creates an assistant placeholder shown while waiting for
// the first output. label replaces the default indicator text when non-empty.
func NewThinkingMessage(prefix, label string) Message {
	now := NowMillis()
	return Message{
		ID:         GenerateID(prefix, now),
		Role:       RoleAssistant,
		Content:    label,
		Timestamp:  now,
		IsThinking: true,
	}
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// EnsureID fills in a generated ID when the message has none.
func (m *Message) EnsureID() {
	if m.ID != "" {
		return
	}
	if m.Timestamp == 0 {
		m.Timestamp = NowMillis()
	}
	m.ID = GenerateID("msg", m.Timestamp)
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	c := m
	if m.Attachments != nil {
		c.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return c
}

// Preview returns a single-line, rune-truncated preview of the content.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.SingleLine(m.Content), maxLen)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NowMillis returns the current time in unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateID creates an id of the form <prefix>_<millis>_<7 base36 chars>.
func GenerateID(prefix string, millis int64) string {
	return fmt.Sprintf("%s_%d_%s", prefix, millis, randomBase36(7))
}

// randomBase36 returns n random characters from [0-9a-z].
func randomBase36(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(base36)))
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			sb.WriteByte(base36[int(time.Now().UnixNano()%36)])
			continue
		}
		sb.WriteByte(base36[v.Int64()])
	}
	return sb.String()
}
