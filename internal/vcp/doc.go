// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vcp provides the client for a VCP chat completions server.
//
// The server speaks the OpenAI-compatible chat completions protocol. Replies
// are either a single JSON body or a Server-Sent Events stream.
//
// # Key Types
//
//   - Client: sends requests, owns background streams, supports Cancel
//   - Request / Result: one completion call and its outcome
//   - Message / ContentPart: plain-text or multi-part message bodies
//   - StreamHandler: callbacks for streamed chunks, end and errors
//   - SSEReader: Server-Sent Events parser
//
// # Usage
//
//	client := vcp.NewClient(logger).WithHandler(vcp.StreamHandler{
//		OnChunk: func(id string, c vcp.StreamChunk) { fmt.Print(c.GetContent()) },
//		OnEnd:   func(id, reason string) { fmt.Println() },
//	})
//	defer client.Close()
//
//	res, err := client.SendToVCP(ctx, vcp.Request{
//		ServerURL:     "http://localhost:6005/v1/chat/completions",
//		APIKey:        key,
//		Messages:      []vcp.Message{vcp.NewTextMessage("user", "Hello!")},
//		ModelConfig:   vcp.ModelConfig{Model: "gemini-2.5-flash", Stream: true},
//		CorrelationID: "msg_1",
//	})
package vcp
