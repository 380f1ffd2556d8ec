// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxFileSize bounds attachments read into memory.
const DefaultMaxFileSize = 50 * 1024 * 1024

// Document MIME types that are sent as extracted text.
const (
	MimePDF  = "application/pdf"
	MimeDoc  = "application/msword"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupportedType is returned when text cannot be extracted from a type.
	ErrUnsupportedType = errors.New("unsupported attachment type")

	// ErrTooLarge is returned for files over the size limit.
	ErrTooLarge = errors.New("attachment too large")
)

var textNamePattern = regexp.MustCompile(`(?i)\.(txt|md|log|js|json|html|css|py)$`)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Class says how an attachment is sent to the model.
type Class int

const (
	// ClassSkip attachments are not sent.
	ClassSkip Class = iota
	// ClassMedia attachments are inlined as base64 data URLs.
	ClassMedia
	// ClassDocument attachments are sent as extracted text.
	ClassDocument
)

// Classify decides how an attachment with the given MIME type and display
// name is sent. Images and audio are media. Text types, PDF, Word documents
// and common source and text extensions are documents.
func Classify(mime, name string) Class {
	switch {
	case strings.HasPrefix(mime, "image/"), strings.HasPrefix(mime, "audio/"):
		return ClassMedia
	case strings.HasPrefix(mime, "text/"), mime == MimePDF, mime == MimeDoc, mime == MimeDocx:
		return ClassDocument
	case textNamePattern.MatchString(name):
		return ClassDocument
	}
	return ClassSkip
}

// DataURL builds a data URL from a MIME type and base64 payload.
func DataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}

// =============================================================================
// MATERIALIZER
// =============================================================================

// Materializer reads attachment files for sending to the server.
type Materializer struct {
	maxSize int64
	logger  *zap.Logger
}

// NewMaterializer creates a materializer. maxSize <= 0 uses the default.
func NewMaterializer(maxSize int64, logger *zap.Logger) *Materializer {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{maxSize: maxSize, logger: logger.Named("attach")}
}

// LocalPath strips a file:// prefix from src.
func LocalPath(src string) string {
	return strings.TrimPrefix(src, "file://")
}

// FileAsBase64 returns the standard base64 encoding of the file at src.
func (m *Materializer) FileAsBase64(ctx context.Context, src string) (string, error) {
	data, err := m.read(ctx, src)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// TextContent extracts text from the file at src. Plain text is decoded
// honoring a UTF-8 or UTF-16 byte order mark and normalized to NFC. Word
// .docx files are unpacked. PDF and legacy .doc return ErrUnsupportedType.
func (m *Materializer) TextContent(ctx context.Context, src, mime string) (string, error) {
	data, err := m.read(ctx, src)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(LocalPath(src)))
	switch {
	case mime == MimeDocx || ext == ".docx":
		text, err := docxText(data)
		if err != nil {
			return "", fmt.Errorf("extract docx %s: %w", src, err)
		}
		return norm.NFC.String(text), nil
	case mime == MimePDF || mime == MimeDoc || ext == ".pdf" || ext == ".doc":
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	return decodeText(data)
}

func (m *Materializer) read(ctx context.Context, src string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := LocalPath(src)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attachment %s is a directory", path)
	}
	if info.Size() > m.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	m.logger.Debug("read attachment", zap.String("path", path), zap.Int("bytes", len(data)))
	return data, nil
}

// decodeText converts raw bytes to NFC UTF-8, honoring a byte order mark.
func decodeText(data []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return norm.NFC.String(strings.ToValidUTF8(string(out), "�")), nil
}

// docxText pulls paragraph text out of word/document.xml.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return wordprocessingText(rc)
	}
	return "", errors.New("word/document.xml not found")
}

// wordprocessingText collects w:t runs, breaking lines at w:p and w:br.
func wordprocessingText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
