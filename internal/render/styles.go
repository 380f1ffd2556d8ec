// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import _ "embed"

// Stylesheet is the CSS for rendered message trees. The HTML exporter inlines
// it into the page head.
//
//go:embed assets/chat.css
var Stylesheet string
