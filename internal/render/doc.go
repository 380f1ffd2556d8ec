// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns raw message text into an HTML node tree.
//
// The pipeline for one message body is Normalize, Parser.Parse, fragment
// insertion, Typesetter.Typeset and finally Annotator.Annotate. Every step
// is safe to repeat on the same input.
//
// # Key Types
//
//   - Parser: Markdown to HTML, implemented by Markdown (goldmark + bluemonday)
//   - Annotator: decorates tool-use and diary blocks inside pre elements
//   - Typesetter: math post-processing, implemented by MathMarker
//
// # Usage
//
//	parser := render.NewMarkdown()
//	out, err := parser.Parse(render.Normalize(text))
//	if err != nil {
//		return err
//	}
//	content := render.NewElement("div", render.Class("md-content"))
//	if err := render.SetInnerHTML(content, out); err != nil {
//		return err
//	}
//	render.MathMarker{}.Typeset(content)
//	render.NewAnnotator().Annotate(content)
package render
