// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/attach"
	"github.com/jeranaias/vcpchat-tui/internal/util"
)

// =============================================================================
// SYSTEM
// =============================================================================

// System is the operating system surface the chat screen uses. Nil fields
// fall back to the defaults.
type System struct {
	// Open hands a path or URL to the default application.
	Open func(target string) error
	// WriteClipboard and ReadClipboard access the system clipboard.
	WriteClipboard func(text string) error
	ReadClipboard  func() (string, error)
	// TempDir holds decoded data: images. Empty means os.TempDir().
	TempDir string
}

// DefaultSystem uses the platform opener and the atotto clipboard.
func DefaultSystem() System {
	return System{
		Open:           util.OpenPath,
		WriteClipboard: clipboard.WriteAll,
		ReadClipboard:  clipboard.ReadAll,
	}
}

func (s System) withDefaults() System {
	d := DefaultSystem()
	if s.Open == nil {
		s.Open = d.Open
	}
	if s.WriteClipboard == nil {
		s.WriteClipboard = d.WriteClipboard
	}
	if s.ReadClipboard == nil {
		s.ReadClipboard = d.ReadClipboard
	}
	if s.TempDir == "" {
		s.TempDir = os.TempDir()
	}
	return s
}

// =============================================================================
// SHELL
// =============================================================================

// termShell implements chatview.Shell with overlays on the chat screen.
// Every method runs on the Bubble Tea update goroutine.
type termShell struct {
	m *Model
}

func (s termShell) OpenImageInNewWindow(src, title string) {
	target, err := s.m.imageTarget(src)
	if err == nil {
		err = s.m.sys.Open(target)
	}
	if err != nil {
		s.m.logger.Warn("open image failed", zap.String("title", title), zap.Error(err))
		s.m.setError(fmt.Errorf("open image: %w", err))
		return
	}
	s.m.setStatus("Opened " + title)
}

func (s termShell) ShowImageContextMenu(src string) {
	s.m.imageMenu = &imageMenu{src: src}
}

func (s termShell) OpenTextInNewWindow(text, title, theme string) {
	s.m.reader = newReader(text, title, theme, s.m.width, s.m.height)
}

func (s termShell) OpenPath(path string) error {
	return s.m.sys.Open(path)
}

func (s termShell) WriteClipboard(text string) error {
	if err := s.m.sys.WriteClipboard(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	s.m.setStatus("Copied to clipboard")
	return nil
}

func (s termShell) ReadClipboard() (string, error) {
	text, err := s.m.sys.ReadClipboard()
	if err != nil {
		return "", fmt.Errorf("clipboard: %w", err)
	}
	return text, nil
}

func (s termShell) Confirm(prompt string, done func(bool)) {
	if prev := s.m.confirm; prev != nil {
		s.m.confirm = nil
		prev.done(false)
	}
	s.m.confirm = &confirmDialog{prompt: prompt, done: done}
}

// =============================================================================
// IMAGES
// =============================================================================

var errBadDataURL = errors.New("malformed data URL")

// imageTarget returns something the opener understands for an image src.
// data: URLs are decoded to a temporary file.
func (m *Model) imageTarget(src string) (string, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return writeDataURL(m.sys.TempDir, src)
	case strings.HasPrefix(src, "file://"):
		return attach.LocalPath(src), nil
	}
	return src, nil
}

func writeDataURL(dir, src string) (string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", errBadDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadDataURL, err)
	}

	ext := ".img"
	if exts, _ := mime.ExtensionsByType(strings.TrimSuffix(meta, ";base64")); len(exts) > 0 {
		ext = exts[0]
	}
	f, err := os.CreateTemp(dir, "vcpchat-image-*"+ext)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}
