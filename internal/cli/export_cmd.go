// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jeranaias/vcpchat-tui/internal/export"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
	"github.com/jeranaias/vcpchat-tui/internal/ui/styles"
)

// Export writes a stored topic to an HTML, Markdown or JSON file.
func (e *Env) Export(args Args) error {
	agentID, topicID, err := e.requireTopic(args, "export")
	if err != nil {
		return err
	}

	opts := e.exportOptions(args)
	exporter, err := export.ForFormat(args.Format, opts)
	if err != nil {
		return NewValidationErrorWithExample("--format", args.Format, err.Error(), "vcpchat export --format md")
	}

	ctx, cancel := e.context()
	defer cancel()

	conv, err := export.Load(ctx, e.Store, e.Agents, agentID, topicID)
	if errors.Is(err, storage.ErrHistoryNotFound) {
		return &NotFoundError{Resource: "topic", ID: agentID + "/" + topicID}
	}
	if err != nil {
		return NewCommandError("export", "load", err)
	}
	conv.UserName = e.Config.User.Name
	conv.UserAvatar = e.Config.User.Avatar

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return NewCommandError("export", "write", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if args.JSON {
		return NewJSONResponse("export", ExportData{Path: path, Format: formatName(args.Format)}).Print(e.Out)
	}
	if args.Quiet {
		fmt.Fprintln(e.Out, path)
		return nil
	}
	fmt.Fprintf(e.Out, "%s %s\n", SuccessStyle.Render("Exported"), conv.Title())
	fmt.Fprintln(e.Out, RenderField("File:", path))
	return nil
}

// exportOptions maps flags and the ui section onto export options.
func (e *Env) exportOptions(args Args) *export.Options {
	opts := export.DefaultOptions()
	opts.OutputPath = args.Out
	opts.OpenAfterExport = args.Open
	opts.IncludeTimestamps = e.Config.UI.ShowTimestamps
	opts.DiaryLabelPrefixes = e.Config.Chat.DiaryLabelPrefixes
	opts.Logger = e.Logger
	// auto exports dark.
	if e.Config.UI.Theme == styles.ModeLight {
		opts.Theme = styles.ModeLight
	}
	return opts
}

func formatName(format string) string {
	switch format {
	case "", export.FormatHTML:
		return export.FormatHTML
	case "markdown":
		return export.FormatMarkdown
	}
	return format
}
