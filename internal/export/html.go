// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"time"

	xhtml "golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/chatview"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter renders a topic through a headless chat view and wraps the
// resulting message tree in a standalone page.
type HTMLExporter struct {
	options *Options
	parser  render.Parser
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, parser: render.NewMarkdown()}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *Conversation) ([]byte, error) {
	if err := conv.validate(); err != nil {
		return nil, err
	}

	body, err := e.renderMessages(conv)
	if err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n")
	buf.WriteString("<html lang=\"en\">\n<head>\n")
	buf.WriteString("    <meta charset=\"UTF-8\">\n")
	buf.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	buf.WriteString("    <meta name=\"generator\" content=\"vcpchat\">\n")
	fmt.Fprintf(&buf, "    <title>%s</title>\n", html.EscapeString(conv.Title()))
	buf.WriteString("    <style>\n")
	buf.WriteString(render.Stylesheet)
	buf.WriteString(pageCSS)
	buf.WriteString("    </style>\n")
	buf.WriteString("</head>\n")
	fmt.Fprintf(&buf, "<body class=\"%s-theme\">\n", theme)

	if e.options.IncludeMetadata {
		e.writeHeader(&buf, conv)
	}
	buf.Write(body)
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "    <footer class=\"export-footer\">Exported by vcpchat on %s</footer>\n",
		html.EscapeString(formatTimestamp(time.Now())))
	buf.WriteString(themeScript)
	buf.WriteString("</body>\n</html>\n")

	return buf.Bytes(), nil
}

// renderMessages runs the history through the same rendering pipeline the
// terminal view uses, without persistence or timers.
func (e *HTMLExporter) renderMessages(conv *Conversation) ([]byte, error) {
	view, err := chatview.New(chatview.Refs{
		Parser:     e.parser,
		Typesetter: render.MathMarker{},
		Logger:     e.options.logger(),
	}, chatview.Options{
		Headless:           true,
		Theme:              e.options.Theme,
		DiaryLabelPrefixes: e.options.DiaryLabelPrefixes,
	})
	if err != nil {
		return nil, fmt.Errorf("create view: %w", err)
	}
	defer view.Close()

	view.SetCurrentAgentName(conv.AgentName)
	view.SetCurrentAgentAvatar(conv.AgentAvatar)
	if conv.UserName != "" {
		view.SetUserName(conv.UserName)
	}
	view.SetUserAvatar(conv.UserAvatar)
	view.LoadTopic(conv.AgentID, conv.TopicID, conv.exportable())

	if !e.options.IncludeTimestamps {
		for _, ts := range render.FindAll(view.Root(), render.ByClass(chatview.ClassTimestamp)) {
			render.Detach(ts)
		}
	}

	var buf bytes.Buffer
	if err := xhtml.Render(&buf, view.Root()); err != nil {
		return nil, fmt.Errorf("render messages: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *HTMLExporter) writeHeader(buf *bytes.Buffer, conv *Conversation) {
	buf.WriteString("    <header class=\"export-header\">\n")
	fmt.Fprintf(buf, "        <h1>%s</h1>\n", html.EscapeString(conv.Title()))
	buf.WriteString("        <div class=\"metadata\">\n")
	fmt.Fprintf(buf, "            <span class=\"meta-item\">Agent: %s</span>\n", html.EscapeString(conv.AgentID))
	fmt.Fprintf(buf, "            <span class=\"meta-item\">Topic: %s</span>\n", html.EscapeString(conv.TopicID))
	fmt.Fprintf(buf, "            <span class=\"meta-item\">Messages: %d</span>\n", len(conv.exportable()))
	if !conv.UpdatedAt.IsZero() {
		fmt.Fprintf(buf, "            <span class=\"meta-item\">Updated: %s</span>\n",
			html.EscapeString(formatTimestamp(conv.UpdatedAt)))
	}
	buf.WriteString("            <button class=\"theme-toggle\" onclick=\"toggleTheme()\">Toggle theme</button>\n")
	buf.WriteString("        </div>\n")
	buf.WriteString("    </header>\n")
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// EMBEDDED PAGE ASSETS
// =============================================================================

const pageCSS = `
.light-theme {
  --bg: #ffffff;
  --surface: #f6f8fa;
  --text: #24292e;
  --muted: #6a737d;
  --user: #dbe7ff;
  --assistant: #f1f3f5;
  --accent: #5b3fd6;
}

.export-header {
  max-width: 880px;
  margin: 0 auto 24px;
  padding-bottom: 12px;
  border-bottom: 1px solid var(--muted);
}

.export-header h1 {
  font-size: 1.5em;
  margin: 0 0 8px;
}

.metadata {
  display: flex;
  flex-wrap: wrap;
  gap: 16px;
  font-size: 0.85em;
  color: var(--muted);
  align-items: center;
}

.theme-toggle {
  margin-left: auto;
  background: var(--surface);
  color: var(--text);
  border: 1px solid var(--muted);
  border-radius: 6px;
  padding: 4px 10px;
  cursor: pointer;
}

.export-footer {
  max-width: 880px;
  margin: 32px auto 0;
  font-size: 0.8em;
  color: var(--muted);
  text-align: center;
}

@media print {
  .theme-toggle { display: none; }
}
`

const themeScript = `    <script>
        function toggleTheme() {
            const body = document.body;
            const next = body.classList.contains('dark-theme') ? 'light' : 'dark';
            body.classList.remove('dark-theme', 'light-theme');
            body.classList.add(next + '-theme');
            localStorage.setItem('theme', next);
        }

        document.addEventListener('DOMContentLoaded', function() {
            const saved = localStorage.getItem('theme');
            if (saved === 'dark' || saved === 'light') {
                document.body.classList.remove('dark-theme', 'light-theme');
                document.body.classList.add(saved + '-theme');
            }
        });
    </script>
`
