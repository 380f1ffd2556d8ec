// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/vcpchat-tui/internal/model"
)

// FromPath describes a local file as a message attachment. The MIME type
// comes from the extension, or from the first bytes when the extension is
// unknown. Src is a file:// URL.
func FromPath(path string) (model.Attachment, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return model.Attachment{}, err
	}
	if !info.Mode().IsRegular() {
		return model.Attachment{}, fmt.Errorf("%s: %w", path, ErrUnsupportedType)
	}
	if info.Size() > DefaultMaxFileSize {
		return model.Attachment{}, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}

	typ, err := detectType(abs)
	if err != nil {
		return model.Attachment{}, err
	}
	return model.Attachment{
		Type: typ,
		Src:  "file://" + filepath.ToSlash(abs),
		Name: filepath.Base(abs),
	}, nil
}

func detectType(path string) (string, error) {
	if typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); typ != "" {
		typ, _, _ = strings.Cut(typ, ";")
		return typ, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	typ, _, _ := strings.Cut(http.DetectContentType(head[:n]), ";")
	return typ, nil
}
