// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach reads message attachments so they can be sent to the model.
//
// Images and audio are sent as base64 data URLs. Documents are sent as
// extracted text. Classify decides which applies.
package attach
