// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// =============================================================================
// TEXT NORMALIZER
// =============================================================================

// fenceMarker matches an opening or closing code fence at the start of a
// line, including an optional info word such as a language tag.
var fenceMarker = regexp.MustCompile("^[ \t]*`{3,}[ \t]*[\\w+#.-]*")

// Normalize applies every fix-up in order. It is called before every parse,
// including the fast path during streaming.
func Normalize(text string) string {
	text = EnsureNewlineAfterCodeFence(text)
	text = EnsureSpaceAfterTilde(text)
	return TrimCodeFenceIndent(text)
}

// EnsureNewlineAfterCodeFence moves any text that follows a fence marker on
// the same line onto its own line. Lines produced by a split are checked
// again, so "```js```" becomes two fence lines.
func EnsureNewlineAfterCodeFence(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		for {
			loc := fenceMarker.FindStringIndex(line)
			if loc == nil {
				out = append(out, line)
				break
			}
			rest := strings.TrimLeft(line[loc[1]:], " \t")
			if strings.TrimRight(rest, " \t\r") == "" {
				out = append(out, line)
				break
			}
			out = append(out, line[:loc[1]])
			line = rest
		}
	}
	return strings.Join(out, "\n")
}

// EnsureSpaceAfterTilde inserts a space after every "~" that is not followed
// by whitespace or another "~". A trailing "~" also gains one.
func EnsureSpaceAfterTilde(text string) string {
	if !strings.Contains(text, "~") {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text) + 8)
	for i := 0; i < len(text); i++ {
		c := text[i]
		sb.WriteByte(c)
		if c != '~' {
			continue
		}
		if i+1 < len(text) {
			r, _ := utf8.DecodeRuneInString(text[i+1:])
			if r == '~' || unicode.IsSpace(r) {
				continue
			}
		}
		sb.WriteByte(' ')
	}
	return sb.String()
}

// TrimCodeFenceIndent strips leading spaces and tabs from fence lines.
func TrimCodeFenceIndent(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "```") {
			lines[i] = trimmed
		}
	}
	return strings.Join(lines, "\n")
}
