// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"golang.org/x/net/html"
)

// Typesetter post-processes rendered content for math.
type Typesetter interface {
	Typeset(n *html.Node)
}

// Math span classes.
const (
	ClassMathInline  = "math-inline"
	ClassMathDisplay = "math-display"
)

// NopTypesetter leaves content untouched.
type NopTypesetter struct{}

// Typeset does nothing.
func (NopTypesetter) Typeset(*html.Node) {}

// MathMarker wraps TeX delimited by $$..$$, \[..\], \(..\) or $..$ into spans
// carrying the source in data-tex. Text inside code, pre and existing math
// spans is left alone, so running it twice changes nothing.
type MathMarker struct{}

// Typeset marks math under n.
func (MathMarker) Typeset(n *html.Node) {
	if n == nil {
		return
	}
	var texts []*html.Node
	collectMathText(n, &texts)
	for _, t := range texts {
		segs := splitMath(t.Data)
		if len(segs) == 1 && !segs[0].math {
			continue
		}
		parent := t.Parent
		for _, s := range segs {
			parent.InsertBefore(s.node(), t)
		}
		parent.RemoveChild(t)
	}
}

func collectMathText(n *html.Node, out *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.ContainsAny(c.Data, `$\`) {
				*out = append(*out, c)
			}
		case html.ElementNode:
			switch c.Data {
			case "pre", "code", "script", "style", "textarea":
				continue
			}
			if HasClass(c, ClassMathInline) || HasClass(c, ClassMathDisplay) {
				continue
			}
			collectMathText(c, out)
		}
	}
}

type mathSegment struct {
	text    string
	math    bool
	display bool
}

func (s mathSegment) node() *html.Node {
	if !s.math {
		return NewText(s.text)
	}
	class := ClassMathInline
	if s.display {
		class = ClassMathDisplay
	}
	span := NewElement("span", Class(class), Attr("data-tex", s.text))
	span.AppendChild(NewText(s.text))
	return span
}

var mathPairs = []struct {
	open, close string
	display     bool
}{
	{"$$", "$$", true},
	{`\[`, `\]`, true},
	{`\(`, `\)`, false},
}

// splitMath breaks s into plain and math segments.
func splitMath(s string) []mathSegment {
	var segs []mathSegment
	last := 0
	emit := func(open, start, end, next int, display bool) {
		if open > last {
			segs = append(segs, mathSegment{text: s[last:open]})
		}
		segs = append(segs, mathSegment{text: s[start:end], math: true, display: display})
		last = next
	}

	i := 0
scan:
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '$' {
			i += 2
			continue
		}
		for _, p := range mathPairs {
			if !strings.HasPrefix(s[i:], p.open) {
				continue
			}
			body := i + len(p.open)
			if j := strings.Index(s[body:], p.close); j > 0 {
				emit(i, body, body+j, body+j+len(p.close), p.display)
				i = last
				continue scan
			}
		}
		if s[i] == '$' {
			if j := strings.IndexByte(s[i+1:], '$'); j > 0 {
				inner := s[i+1 : i+1+j]
				if !strings.ContainsRune(inner, '\n') && inner[0] != ' ' && inner[len(inner)-1] != ' ' {
					emit(i, i+1, i+1+j, i+2+j, false)
					i = last
					continue
				}
			}
		}
		i++
	}

	if last < len(s) || len(segs) == 0 {
		segs = append(segs, mathSegment{text: s[last:]})
	}
	return segs
}
