// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxChunkSize is the maximum allowed size for a single SSE event.
const MaxChunkSize = 1024 * 1024

// FinishCompleted is reported when a stream ends without a finish reason.
const FinishCompleted = "completed"

// ErrChunkTooLarge is returned when an SSE event exceeds MaxChunkSize.
var ErrChunkTooLarge = errors.New("sse event too large")

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Delta is the incremental part of a streamed choice.
type Delta struct {
	Content string `json:"content"`
	Role    string `json:"role,omitempty"`
}

// StreamChoice is one choice in a streamed chunk.
type StreamChoice struct {
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

// StreamChunk is a single decoded SSE data payload.
type StreamChunk struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// GetContent returns the content from the first choice's delta.
func (c StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// GetFinishReason returns the finish reason if the chunk carries one.
func (c StreamChunk) GetFinishReason() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason
	}
	return ""
}

// IsDone returns true if the chunk finishes the reply.
func (c StreamChunk) IsDone() bool {
	return c.GetFinishReason() != ""
}

// StreamHandler receives the events of background streams. Every callback is
// tagged with the request's correlation id and runs on the stream goroutine;
// hosts hand the work to their UI thread themselves. Nil fields are skipped.
type StreamHandler struct {
	// OnChunk receives each decoded chunk, in arrival order.
	OnChunk func(id string, chunk StreamChunk)
	// OnMalformed receives data payloads that are not valid JSON.
	OnMalformed func(id, raw string, err error)
	// OnEnd is called once when the stream finishes normally.
	OnEnd func(id, finishReason string)
	// OnError is called once when the stream fails. Cancelled streams do
	// not report.
	OnError func(id string, err error)
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event from the stream and returns its event
// type and data. Multiple data lines are joined with "\n". Returns io.EOF
// when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var (
		eventType string
		dataLines [][]byte
		size      int
	)

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line ends the event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := bytes.TrimPrefix(line[5:], []byte(" "))
			size += len(data)
			if size > MaxChunkSize {
				return "", nil, ErrChunkTooLarge
			}
			dataLines = append(dataLines, data)
		}
		// id:, retry: and comments are ignored
	}
}

// =============================================================================
// STREAM PROCESSING
// =============================================================================

// processStream reads SSE events until [DONE], EOF or cancellation and
// forwards them to the handler. It returns the finish reason.
func processStream(ctx context.Context, id string, body io.Reader, h StreamHandler) (string, error) {
	reader := NewSSEReader(body)
	finish := ""

	for {
		if err := ctx.Err(); err != nil {
			return finish, err
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return finishOrDefault(finish), nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish, ctxErr
			}
			return finish, fmt.Errorf("read stream: %w", err)
		}

		if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
			return finishOrDefault(finish), nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			if h.OnMalformed != nil {
				h.OnMalformed(id, string(data), err)
			}
			continue
		}

		if h.OnChunk != nil {
			h.OnChunk(id, chunk)
		}
		if r := chunk.GetFinishReason(); r != "" {
			finish = r
		}
	}
}

func finishOrDefault(reason string) string {
	if reason == "" {
		return FinishCompleted
	}
	return reason
}
