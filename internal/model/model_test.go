// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestGenerateID_Format(t *testing.T) {
	re := regexp.MustCompile(`^msg_1700000000000_[0-9a-z]{7}$`)
	for i := 0; i < 20; i++ {
		id := GenerateID("msg", 1700000000000)
		if !re.MatchString(id) {
			t.Fatalf("GenerateID() = %q, does not match %s", id, re)
		}
	}
}

func TestMessage_EnsureID(t *testing.T) {
	m := Message{Role: RoleUser, Content: "hi", Timestamp: 42}
	m.EnsureID()
	assert.Regexp(t, `^msg_42_[0-9a-z]{7}$`, m.ID)

	before := m.ID
	m.EnsureID()
	assert.Equal(t, before, m.ID, "EnsureID must not replace an existing id")
}

func TestAttachment_Kind(t *testing.T) {
	tests := []struct {
		mime string
		want AttachmentKind
	}{
		{"image/png", KindImage},
		{"audio/mpeg", KindAudio},
		{"video/mp4", KindVideo},
		{"application/pdf", KindFile},
		{"", KindFile},
	}
	for _, tc := range tests {
		t.Run(tc.mime, func(t *testing.T) {
			if got := (Attachment{Type: tc.mime}).Kind(); got != tc.want {
				t.Errorf("Kind() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAttachment_Path(t *testing.T) {
	a := Attachment{Src: "file:///home/u/a.txt"}
	assert.Equal(t, "/home/u/a.txt", a.Path())
	assert.Equal(t, "/tmp/b", Attachment{Src: "/tmp/b"}.Path())
}

func TestMessage_CloneIsDeep(t *testing.T) {
	m := Message{ID: "a", Attachments: []Attachment{{Name: "x"}}}
	c := m.Clone()
	c.Attachments[0].Name = "y"
	assert.Equal(t, "x", m.Attachments[0].Name)
}

func TestMessage_Preview(t *testing.T) {
	m := Message{Content: "line one\nline two is long"}
	assert.Equal(t, "line on...", m.Preview(10))
	assert.Equal(t, "line one line two is long", m.Preview(100))
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestStore_AppendRejectsDuplicates(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Append(Message{ID: "a"})
	require.NoError(t, err)

	_, err = s.Append(Message{ID: "a"})
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = s.Append(Message{})
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ResetDropsDuplicateIDs(t *testing.T) {
	s := NewStore([]Message{{ID: "a", Content: "1"}, {ID: "a", Content: "2"}, {ID: "b"}})
	require.Equal(t, 2, s.Len())
	m, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", m.Content)
}

func TestStore_ResetAssignsMissingIDs(t *testing.T) {
	in := []Message{
		{Role: RoleUser, Content: "one", Timestamp: 1},
		{Role: RoleAssistant, Content: "two", Timestamp: 2},
	}
	s := NewStore(in)
	require.Equal(t, 2, s.Len())

	first, second := s.At(0), s.At(1)
	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 0, s.Index(first.ID))
	assert.Equal(t, 1, s.Index(second.ID))
	assert.Empty(t, in[0].ID, "input slice must not be modified")
}

func TestStore_AppendContentIsInPlace(t *testing.T) {
	s := NewStore([]Message{{ID: "a"}})
	got, ok := s.AppendContent("a", "Hello ")
	require.True(t, ok)
	assert.Equal(t, "Hello ", got)
	got, _ = s.AppendContent("a", "world")
	assert.Equal(t, "Hello world", got)

	_, ok = s.AppendContent("missing", "x")
	assert.False(t, ok)
}

func TestStore_RemoveAndTruncate(t *testing.T) {
	s := NewStore([]Message{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}})

	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))

	removed := s.Truncate(1)
	ids := func(ms []Message) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.ID
		}
		return out
	}
	if diff := cmp.Diff([]string{"c", "d"}, ids(removed)); diff != "" {
		t.Errorf("Truncate removed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, ids(s.Snapshot())); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, s.Truncate(5))
}

func TestStore_SnapshotIsDetached(t *testing.T) {
	s := NewStore([]Message{{ID: "a", Content: "x"}})
	snap := s.Snapshot()
	snap[0].Content = "changed"
	m, _ := s.Get("a")
	assert.Equal(t, "x", m.Content)

	prefix := s.Prefix(10)
	assert.Len(t, prefix, 1)
}
