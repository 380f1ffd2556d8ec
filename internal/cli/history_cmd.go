// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Stored topic commands: list, show and delete.

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
)

// History dispatches the history subcommands.
func (e *Env) History(args Args) error {
	switch args.Subcommand {
	case "", "list", "ls":
		return e.historyList(args)
	case "show", "cat":
		return e.historyShow(args)
	case "delete", "rm":
		return e.historyDelete(args)
	default:
		return ErrUnknownSubcommand("history", args.Subcommand, []string{"list", "show", "delete"})
	}
}

func (e *Env) historyList(args Args) error {
	ctx, cancel := e.context()
	defer cancel()

	topics, err := e.Store.ListTopics(ctx, args.Agent)
	if err != nil {
		return NewCommandError("history", "list", err)
	}

	if args.JSON {
		if topics == nil {
			topics = []storage.TopicMeta{}
		}
		return NewJSONResponse("history list", TopicListData{Topics: topics, Count: len(topics)}).Print(e.Out)
	}
	if args.Quiet {
		for _, t := range topics {
			fmt.Fprintf(e.Out, "%s/%s\n", t.AgentID, t.TopicID)
		}
		return nil
	}
	fmt.Fprint(e.Out, storage.FormatTopicList(topics))
	if len(topics) == 0 {
		fmt.Fprintln(e.Out)
	}
	return nil
}

func (e *Env) historyShow(args Args) error {
	agentID, topicID, err := e.requireTopic(args, "history show")
	if err != nil {
		return err
	}

	ctx, cancel := e.context()
	defer cancel()

	msgs, err := e.loadTopic(ctx, agentID, topicID)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history show", TopicData{
			AgentID:  agentID,
			TopicID:  topicID,
			Messages: msgs,
		}).Print(e.Out)
	}

	agentName := agentID
	if cfg, err := e.Agents.AgentConfig(ctx, agentID); err == nil {
		agentName = cfg.DisplayName()
	}
	userName := e.Config.User.Name
	if userName == "" {
		userName = "You"
	}

	width := GetTerminalWidth() - 4
	fmt.Fprintln(e.Out, TitleStyle.Render(agentName+" / "+topicID))
	for _, m := range msgs {
		fmt.Fprintln(e.Out, e.messageHeader(m, agentName, userName))
		content := wordwrap.String(m.Content, width)
		for _, line := range strings.Split(content, "\n") {
			fmt.Fprintln(e.Out, "  "+line)
		}
		for _, a := range m.Attachments {
			fmt.Fprintln(e.Out, DimStyle.Render("  [attachment] "+a.Name+" ("+a.Type+")"))
		}
		fmt.Fprintln(e.Out)
	}
	fmt.Fprintln(e.Out, DimStyle.Render(fmt.Sprintf("%d messages", len(msgs))))
	return nil
}

func (e *Env) messageHeader(m model.Message, agentName, userName string) string {
	var label string
	switch m.Role {
	case model.RoleUser:
		label = UserRoleStyle.Render(userName)
	case model.RoleAssistant:
		label = AssistantRoleStyle.Render(agentName)
	default:
		label = SystemRoleStyle.Render(string(m.Role))
	}
	if e.Config.UI.ShowTimestamps && m.Timestamp > 0 {
		label += " " + DimStyle.Render(time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04"))
	}
	return label
}

func (e *Env) historyDelete(args Args) error {
	agentID, topicID, err := e.requireTopic(args, "history delete")
	if err != nil {
		return err
	}

	ctx, cancel := e.context()
	defer cancel()

	msgs, err := e.loadTopic(ctx, agentID, topicID)
	if err != nil {
		return err
	}

	ok, err := RequireConfirmation(e.In, e.Out, "delete topic "+agentID+"/"+topicID, ConfirmationOptions{
		Yes:         args.Yes,
		JSONMode:    args.JSON,
		Interactive: e.Interactive,
		Details: [][2]string{
			{"Agent", agentID},
			{"Topic", topicID},
			{"Messages", fmt.Sprint(len(msgs))},
		},
	})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(e.Out, "Cancelled.")
		return nil
	}

	if err := e.Store.DeleteTopic(ctx, agentID, topicID); err != nil {
		return NewCommandError("history", "delete", err)
	}
	e.Logger.Info("topic deleted", zap.String("agent", agentID), zap.String("topic", topicID))

	if args.JSON {
		return NewJSONResponse("history delete", TopicData{AgentID: agentID, TopicID: topicID}).Print(e.Out)
	}
	if !args.Quiet {
		fmt.Fprintf(e.Out, "%s topic %s/%s\n", SuccessStyle.Render("Deleted"), agentID, topicID)
	}
	return nil
}

// loadTopic maps a missing history to NotFoundError.
func (e *Env) loadTopic(ctx context.Context, agentID, topicID string) ([]model.Message, error) {
	msgs, err := e.Store.LoadChatHistory(ctx, agentID, topicID)
	if errors.Is(err, storage.ErrHistoryNotFound) {
		return nil, &NotFoundError{Resource: "topic", ID: agentID + "/" + topicID}
	}
	if err != nil {
		return nil, NewCommandError("history", "load", err)
	}
	return msgs, nil
}
