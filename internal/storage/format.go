// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strconv"
	"strings"

	"github.com/jeranaias/vcpchat-tui/internal/util"
)

// FormatTopicList renders topic metadata as a fixed-width table.
func FormatTopicList(topics []TopicMeta) string {
	if len(topics) == 0 {
		return "No topics found."
	}

	const rule = "--------------------------------------------------------------------------\n"
	var sb strings.Builder
	sb.WriteString("Topics:\n")
	sb.WriteString(rule)
	sb.WriteString(util.PadRight("Agent", 14) + " " + util.PadRight("Topic", 16) + " " +
		util.PadRight("Updated", 16) + " " + util.PadRight("Msgs", 5) + " Preview\n")
	sb.WriteString(rule)

	for _, t := range topics {
		sb.WriteString(util.PadRight(util.TruncateWidth(t.AgentID, 14), 14) + " " +
			util.PadRight(util.TruncateWidth(t.TopicID, 16), 16) + " " +
			util.PadRight(t.UpdatedAt.Format("2006-01-02 15:04"), 16) + " " +
			util.PadRight(strconv.Itoa(t.MessageCount), 5) + " " +
			util.TruncateWidth(t.Preview, 30) + "\n")
	}
	return sb.String()
}
