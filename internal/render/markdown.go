// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Parser converts Markdown source into an HTML fragment.
type Parser interface {
	Parse(markdown string) (string, error)
}

// Markdown is the production Parser: GitHub-flavored Markdown rendered by
// goldmark, then passed through a bluemonday policy.
//
// Raw HTML in messages is allowed through goldmark and filtered by the
// policy, so agents can still emit inline images and media elements.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdown creates a Markdown parser with hard line breaks enabled.
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithUnsafe(),
		),
	)
	return &Markdown{md: md, policy: NewPolicy()}
}

// Parse renders markdown to sanitized HTML.
func (m *Markdown) Parse(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return m.policy.Sanitize(buf.String()), nil
}

// NewPolicy returns the sanitizer policy used for message content.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowDataURIImages()
	p.AllowURLSchemes("file")
	p.AllowElements("audio", "video", "source")
	p.AllowAttrs("src", "controls").OnElements("audio", "video", "source")
	p.AllowAttrs("type").OnElements("source")
	return p
}
