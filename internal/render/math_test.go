// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMathMarker_Typeset(t *testing.T) {
	root := NewElement("div")
	require.NoError(t, SetInnerHTML(root,
		`<p>Euler: $e^{i\pi}+1=0$ and</p><p>$$\int_0^1 x\,dx$$</p><p>\(a+b\)</p><pre><code>$not math$</code></pre>`))

	MathMarker{}.Typeset(root)

	inline := FindAll(root, ByClass(ClassMathInline))
	require.Len(t, inline, 2)
	tex, _ := GetAttr(inline[0], "data-tex")
	assert.Equal(t, `e^{i\pi}+1=0`, tex)
	tex, _ = GetAttr(inline[1], "data-tex")
	assert.Equal(t, "a+b", tex)

	display := FindAll(root, ByClass(ClassMathDisplay))
	require.Len(t, display, 1)
	assert.Equal(t, `\int_0^1 x\,dx`, TextContent(display[0]))

	assert.Equal(t, "$not math$", TextContent(FindFirst(root, ByTag("code"))))
	assert.Contains(t, TextContent(root), "Euler: ")
}

func TestMathMarker_Idempotent(t *testing.T) {
	root := NewElement("div")
	require.NoError(t, SetInnerHTML(root, `<p>x $a$ y $$b$$ z</p>`))

	MathMarker{}.Typeset(root)
	first := OuterHTML(root)
	MathMarker{}.Typeset(root)
	assert.Equal(t, first, OuterHTML(root))
}

func TestSplitMath(t *testing.T) {
	tests := []struct {
		in   string
		math []string
	}{
		{"costs $5 and $6", nil},
		{"$x$", []string{"x"}},
		{`escaped \$5 and $y$`, []string{"y"}},
		{"$$unterminated", nil},
		{"a $$b$$ c $d$", []string{"b", "d"}},
	}
	for _, tt := range tests {
		var got []string
		joined := ""
		for _, s := range splitMath(tt.in) {
			if s.math {
				got = append(got, s.text)
			}
			joined += s.text
		}
		assert.Equal(t, tt.math, got, "input %q", tt.in)
		if tt.math == nil {
			assert.Equal(t, tt.in, joined, "plain input must round trip")
		}
	}
}

func TestNopTypesetter(t *testing.T) {
	root := NewElement("div")
	require.NoError(t, SetInnerHTML(root, `<p>$x$</p>`))
	NopTypesetter{}.Typeset(root)
	assert.Empty(t, FindAll(root, ByClass(ClassMathInline)))
}
