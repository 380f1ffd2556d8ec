// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassHelpers(t *testing.T) {
	n := NewElement("div", Class("message-item", "assistant"))

	AddClass(n, "streaming", "assistant")
	assert.Equal(t, []string{"message-item", "assistant", "streaming"}, Classes(n))

	RemoveClass(n, "streaming")
	assert.False(t, HasClass(n, "streaming"))

	RemoveClass(n, "message-item")
	RemoveClass(n, "assistant")
	_, ok := GetAttr(n, "class")
	assert.False(t, ok, "empty class attribute should be removed")
}

func TestSetHidden_RoundTrip(t *testing.T) {
	n := NewElement("div", Class("md-content"))
	before := OuterHTML(n)

	SetHidden(n, true)
	assert.True(t, IsHidden(n))
	SetHidden(n, false)
	assert.Equal(t, before, OuterHTML(n))
}

func TestSetInnerHTML(t *testing.T) {
	n := NewElement("div")
	require.NoError(t, SetInnerHTML(n, `<p>a <em>b</em></p><p>c</p>`))
	assert.Equal(t, "a bc", TextContent(n))
	assert.Len(t, FindAll(n, ByTag("p")), 2)

	require.NoError(t, SetInnerHTML(n, "plain"))
	assert.Equal(t, "plain", InnerHTML(n))
}

func TestIsAttachedAndDetach(t *testing.T) {
	root := NewElement("div")
	child := NewElement("span")
	root.AppendChild(child)
	leaf := NewText("x")
	child.AppendChild(leaf)

	assert.True(t, IsAttached(leaf, root))
	Detach(child)
	assert.False(t, IsAttached(leaf, root))
	assert.Nil(t, root.FirstChild)
}

func TestStylesheetEmbedded(t *testing.T) {
	assert.Contains(t, Stylesheet, ".vcp-tool-use-bubble")
	assert.Contains(t, Stylesheet, ".maid-diary-bubble")
}
