// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/util"
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is one agent topic prepared for export.
type Conversation struct {
	AgentID     string
	AgentName   string
	AgentAvatar string
	TopicID     string
	UserName    string
	UserAvatar  string
	Messages    []model.Message
	UpdatedAt   time.Time
}

// ErrEmptyConversation is returned when there is nothing to export.
var ErrEmptyConversation = errors.New("conversation has no messages")

// Title returns "<agent> / <topic>".
func (c *Conversation) Title() string {
	name := c.AgentName
	if name == "" {
		name = c.AgentID
	}
	return name + " / " + c.TopicID
}

func (c *Conversation) validate() error {
	if c == nil {
		return errors.New("conversation is nil")
	}
	if len(c.Messages) == 0 {
		return ErrEmptyConversation
	}
	return nil
}

// exportable drops thinking placeholders, which never reach storage but may
// be present in a live view's snapshot.
func (c *Conversation) exportable() []model.Message {
	out := make([]model.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if !m.IsThinking {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *Conversation) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Format names accepted by ForFormat.
const (
	FormatHTML     = "html"
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch format {
	case FormatHTML, "":
		return NewHTMLExporter(opts), nil
	case FormatMarkdown, "markdown":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want html, md or json)", format)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OutputPath overrides the generated file name when set.
	OutputPath string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the metadata header.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string

	// DiaryLabelPrefixes configures diary bubble detection in HTML export.
	DiaryLabelPrefixes []string

	Logger *zap.Logger
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
	}
}

func (o *Options) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger.Named("export")
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a conversation to a file using the specified exporter.
// Returns the output file path or an error.
func ExportToFile(conv *Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := conv.validate(); err != nil {
		return "", err
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(opts.OutputDir, FileName(conv, exporter, time.Now()))
	}
	if err := util.AtomicWriteFileWithDir(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	log := opts.logger()
	log.Info("exported topic",
		zap.String("agent", conv.AgentID),
		zap.String("topic", conv.TopicID),
		zap.String("format", exporter.MimeType()),
		zap.String("path", outputPath),
		zap.Int("bytes", len(content)))

	if opts.OpenAfterExport {
		if err := util.OpenPath(outputPath); err != nil {
			// Non-fatal: the file was written.
			log.Warn("could not open exported file", zap.String("path", outputPath), zap.Error(err))
		}
	}

	return outputPath, nil
}

// FileName returns "<agent>_<topic>_<timestamp><ext>".
func FileName(conv *Conversation, exporter Exporter, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s%s",
		sanitizeFilename(conv.AgentID),
		sanitizeFilename(conv.TopicID),
		at.Format("20060102_150405"),
		exporter.FileExtension(),
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(s)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 || string(result) == "." || string(result) == ".." {
		return "topic"
	}
	return string(result)
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
