// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/vcpchat-tui/internal/agents"
	"github.com/jeranaias/vcpchat-tui/internal/util"
)

// AgentsCmd dispatches the agents subcommands.
func (e *Env) AgentsCmd(args Args) error {
	switch args.Subcommand {
	case "", "list", "ls":
		return e.agentsList(args)
	case "show":
		return e.agentsShow(args)
	case "init", "new":
		return e.agentsInit(args)
	default:
		return ErrUnknownSubcommand("agents", args.Subcommand, []string{"list", "show", "init"})
	}
}

// agentArg returns "agents show ID" style ids, or --agent.
func agentArg(args Args, usage string) (string, error) {
	if id := NewArgParser(args.Raw).Positional(1); id != "" {
		return id, nil
	}
	if args.Agent != "" {
		return args.Agent, nil
	}
	return "", ErrMissingArgument("agent id", usage)
}

func (e *Env) agentData(cfg *agents.Config) AgentData {
	return AgentData{
		ID:           cfg.ID,
		Name:         cfg.DisplayName(),
		Model:        cfg.Model,
		Temperature:  float64(cfg.Temperature),
		StreamOutput: bool(cfg.StreamOutput),
		SystemPrompt: cfg.SystemPrompt,
		Avatar:       cfg.Avatar,
		Dir:          e.Agents.AgentDir(cfg.ID),
	}
}

func (e *Env) agentsList(args Args) error {
	ctx, cancel := e.context()
	defer cancel()

	list, err := e.Agents.List(ctx)
	if err != nil {
		return NewCommandError("agents", "list", err)
	}

	if args.JSON {
		data := make([]AgentData, 0, len(list))
		for _, cfg := range list {
			data = append(data, e.agentData(cfg))
		}
		return NewJSONResponse("agents list", data).Print(e.Out)
	}
	if args.Quiet {
		for _, cfg := range list {
			fmt.Fprintln(e.Out, cfg.ID)
		}
		return nil
	}
	if len(list) == 0 {
		fmt.Fprintf(e.Out, "No agents in %s\n", e.Agents.Dir())
		fmt.Fprintln(e.Out, DimStyle.Render("Create one with: vcpchat agents init <id>"))
		return nil
	}

	fmt.Fprintln(e.Out, TitleStyle.Render("Agents"))
	fmt.Fprintln(e.Out, SectionStyle.Render(
		util.PadRight("ID", 16)+" "+util.PadRight("Name", 20)+" "+util.PadRight("Model", 24)+" Stream"))
	for _, cfg := range list {
		stream := "no"
		if cfg.StreamOutput {
			stream = "yes"
		}
		fmt.Fprintln(e.Out,
			util.PadRight(util.TruncateWidth(cfg.ID, 16), 16)+" "+
				util.PadRight(util.TruncateWidth(cfg.DisplayName(), 20), 20)+" "+
				util.PadRight(util.TruncateWidth(cfg.Model, 24), 24)+" "+stream)
	}
	return nil
}

func (e *Env) agentsShow(args Args) error {
	id, err := agentArg(args, "vcpchat agents show <id>")
	if err != nil {
		return err
	}

	ctx, cancel := e.context()
	defer cancel()

	cfg, err := e.Agents.AgentConfig(ctx, id)
	if errors.Is(err, agents.ErrAgentNotFound) {
		return &NotFoundError{Resource: "agent", ID: id}
	}
	if err != nil {
		return NewCommandError("agents", "show", err)
	}

	data := e.agentData(cfg)
	if args.JSON {
		return NewJSONResponse("agents show", data).Print(e.Out)
	}

	fmt.Fprintln(e.Out, TitleStyle.Render(data.Name))
	fmt.Fprintln(e.Out, RenderField("ID:", data.ID))
	fmt.Fprintln(e.Out, RenderField("Model:", data.Model))
	fmt.Fprintln(e.Out, RenderField("Temperature:", fmt.Sprintf("%.2f", data.Temperature)))
	fmt.Fprintln(e.Out, RenderField("Stream:", fmt.Sprint(data.StreamOutput)))
	if data.Avatar != "" {
		fmt.Fprintln(e.Out, RenderField("Avatar:", data.Avatar))
	}
	fmt.Fprintln(e.Out, RenderField("Directory:", data.Dir))
	if prompt := strings.TrimSpace(data.SystemPrompt); prompt != "" {
		fmt.Fprintln(e.Out)
		fmt.Fprintln(e.Out, SectionStyle.Render("System prompt"))
		fmt.Fprintln(e.Out, prompt)
	}
	return nil
}

func (e *Env) agentsInit(args Args) error {
	id, err := agentArg(args, "vcpchat agents init <id>")
	if err != nil {
		return err
	}
	if err := agents.ValidateID(id); err != nil {
		return NewValidationErrorWithExample("agent id", id, err.Error(), "vcpchat agents init nova")
	}

	ctx, cancel := e.context()
	defer cancel()

	if _, err := e.Agents.AgentConfig(ctx, id); err == nil && !args.Yes {
		return NewValidationErrorWithExample("agent id", id, "agent already exists", "vcpchat agents init "+id+" --yes")
	}

	cfg := agents.Default(id)
	if err := e.Agents.Save(cfg); err != nil {
		return NewCommandError("agents", "init", err)
	}
	path := filepath.Join(e.Agents.AgentDir(id), "config.toml")

	if args.JSON {
		return NewJSONResponse("agents init", e.agentData(cfg)).Print(e.Out)
	}
	fmt.Fprintf(e.Out, "%s agent %s\n", SuccessStyle.Render("Created"), id)
	fmt.Fprintln(e.Out, RenderField("Config:", path))
	return nil
}
