// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/vcpchat-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontmatter is the YAML header of a Markdown export.
type frontmatter struct {
	Title     string `yaml:"title"`
	Agent     string `yaml:"agent"`
	AgentName string `yaml:"agent_name,omitempty"`
	Topic     string `yaml:"topic"`
	Messages  int    `yaml:"messages"`
	Updated   string `yaml:"updated,omitempty"`
	Exported  string `yaml:"exported"`
	Generator string `yaml:"generator"`
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *Conversation) ([]byte, error) {
	if err := conv.validate(); err != nil {
		return nil, err
	}
	msgs := conv.exportable()

	var sb strings.Builder

	if e.options.IncludeMetadata {
		fm := frontmatter{
			Title:     conv.Title(),
			Agent:     conv.AgentID,
			AgentName: conv.AgentName,
			Topic:     conv.TopicID,
			Messages:  len(msgs),
			Exported:  time.Now().Format(time.RFC3339),
			Generator: "vcpchat",
		}
		if !conv.UpdatedAt.IsZero() {
			fm.Updated = conv.UpdatedAt.Format(time.RFC3339)
		}
		data, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("encode frontmatter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(data)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(conv.Title())))

	for i, msg := range msgs {
		label := e.senderLabel(conv, msg.Role)
		if e.options.IncludeTimestamps && msg.Timestamp != 0 {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
				escapeMarkdown(label), formatTimestamp(msg.Time())))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", escapeMarkdown(label)))
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if links := attachmentLinks(msg.Attachments); links != "" {
			sb.WriteString(links)
			sb.WriteString("\n")
		}

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from vcpchat on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) senderLabel(conv *Conversation, role model.Role) string {
	switch role {
	case model.RoleUser:
		if conv.UserName != "" {
			return conv.UserName
		}
		return "User"
	case model.RoleAssistant:
		if conv.AgentName != "" {
			return conv.AgentName
		}
		return "Assistant"
	case "":
		return "Unknown"
	default:
		return role.DisplayName()
	}
}

// attachmentLinks lists attachments, images inline and everything else as a
// link.
func attachmentLinks(list []model.Attachment) string {
	var sb strings.Builder
	for _, a := range list {
		name := a.Name
		if name == "" {
			name = filepath.Base(a.Path())
		}
		target := linkTarget(a.Src)
		if a.Kind() == model.KindImage {
			sb.WriteString(fmt.Sprintf("![%s](%s)\n", escapeMarkdown(name), target))
		} else {
			sb.WriteString(fmt.Sprintf("- [%s](%s)\n", escapeMarkdown(name), target))
		}
	}
	return sb.String()
}

// linkTarget turns a bare local path into a file URL with escaped spaces and
// parentheses so the link survives Markdown parsing.
func linkTarget(src string) string {
	if strings.Contains(src, "://") || strings.HasPrefix(src, "data:") {
		return strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29").Replace(src)
	}
	if abs, err := filepath.Abs(src); err == nil {
		src = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(src)}
	return u.String()
}

// escapeMarkdown escapes characters that would start Markdown formatting in
// headings and link text.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.NewReplacer(
		`\`, `\\`,
		"*", `\*`,
		"_", `\_`,
		"`", "\\`",
		"[", `\[`,
		"]", `\]`,
		"#", `\#`,
		"<", "&lt;",
		">", "&gt;",
	).Replace(s)
}
