// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "errors"

// ErrDuplicateID is returned when a message id is already present in a Store.
var ErrDuplicateID = errors.New("duplicate message id")

// =============================================================================
// MESSAGE STORE
// =============================================================================

// Store is the ordered message history of one chat topic.
//
// Order is insertion order, not timestamp order. Each id appears at most once.
// A Store is not safe for concurrent use; the chat view owns it and touches it
// only from its event thread.
type Store struct {
	messages []*Message
}

// NewStore creates a store seeded with copies of msgs. Messages without an id
// are given one; later duplicates of an id already seen are dropped.
func NewStore(msgs []Message) *Store {
	s := &Store{}
	s.Reset(msgs)
	return s
}

// Reset replaces the whole history, with the same rules as NewStore.
func (s *Store) Reset(msgs []Message) {
	s.messages = make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		c := m.Clone()
		c.EnsureID()
		if s.Index(c.ID) >= 0 {
			continue
		}
		s.messages = append(s.messages, &c)
	}
}

// Len returns the number of messages.
func (s *Store) Len() int {
	return len(s.messages)
}

// Index returns the position of id, or -1.
func (s *Store) Index(id string) int {
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the stored message for id. The pointer stays valid until the
// message is removed; callers on the owning thread may mutate it in place.
func (s *Store) Get(id string) (*Message, bool) {
	i := s.Index(id)
	if i < 0 {
		return nil, false
	}
	return s.messages[i], true
}

// At returns the message at position i.
func (s *Store) At(i int) *Message {
	if i < 0 || i >= len(s.messages) {
		return nil
	}
	return s.messages[i]
}

// Append adds msg at the end. The id must be set and unused.
func (s *Store) Append(msg Message) (*Message, error) {
	if msg.ID == "" {
		return nil, errors.New("message id is required")
	}
	if s.Index(msg.ID) >= 0 {
		return nil, ErrDuplicateID
	}
	c := msg.Clone()
	s.messages = append(s.messages, &c)
	return &c, nil
}

// AppendContent appends text to the content of id and returns the new content.
func (s *Store) AppendContent(id, text string) (string, bool) {
	m, ok := s.Get(id)
	if !ok {
		return "", false
	}
	m.Content += text
	return m.Content, true
}

// Remove deletes id and reports whether it was present.
func (s *Store) Remove(id string) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	copy(s.messages[i:], s.messages[i+1:])
	s.messages[len(s.messages)-1] = nil
	s.messages = s.messages[:len(s.messages)-1]
	return true
}

// Truncate keeps the first n messages and returns copies of the ones removed.
func (s *Store) Truncate(n int) []Message {
	if n < 0 {
		n = 0
	}
	if n >= len(s.messages) {
		return nil
	}
	removed := make([]Message, 0, len(s.messages)-n)
	for _, m := range s.messages[n:] {
		removed = append(removed, m.Clone())
	}
	for i := n; i < len(s.messages); i++ {
		s.messages[i] = nil
	}
	s.messages = s.messages[:n]
	return removed
}

// Snapshot returns deep copies of all messages, in order.
func (s *Store) Snapshot() []Message {
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Prefix returns deep copies of the first n messages.
func (s *Store) Prefix(n int) []Message {
	if n > len(s.messages) {
		n = len(s.messages)
	}
	if n < 0 {
		n = 0
	}
	out := make([]Message, n)
	for i := 0; i < n; i++ {
		out[i] = s.messages[i].Clone()
	}
	return out
}
