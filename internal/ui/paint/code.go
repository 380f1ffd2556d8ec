// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package paint

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// =============================================================================
// CODE BLOCKS
// =============================================================================

// codeBlock renders a fenced block with a language badge and highlighting.
func (p *Painter) codeBlock(pre *html.Node, width int) string {
	code := render.FindFirst(pre, render.ByTag("code"))
	if code == nil {
		code = pre
	}
	language := languageOf(code)
	text := strings.TrimRight(render.TextContent(code), "\n")

	body := p.highlight(text, language)
	body = wrapText(body, width-4)

	if language != "" {
		body = p.theme.CodeLang.Render(language) + "\n" + body
	}
	return p.theme.CodeBlock.Render(body)
}

// languageOf reads the language-xxx class goldmark puts on code elements.
func languageOf(code *html.Node) string {
	for _, c := range render.Classes(code) {
		if lang, ok := strings.CutPrefix(c, "language-"); ok {
			return lang
		}
	}
	return ""
}

// highlight applies syntax highlighting using chroma. It returns the code
// unchanged when highlighting is unavailable.
func (p *Painter) highlight(code, language string) string {
	if p.theme.ColorProfile == termenv.Ascii {
		return code
	}

	lexer := lexers.Get(language)
	if lexer == nil && language == "" {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(p.theme.CodeStyle)
	if style == nil {
		style = chromaStyles.Fallback
	}

	name := "terminal256"
	if p.theme.HasTrueColor {
		name = "terminal16m"
	}
	formatter := formatters.Get(name)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
