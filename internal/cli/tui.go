// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Launches the full-screen chat.

package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/attach"
	"github.com/jeranaias/vcpchat-tui/internal/config"
	"github.com/jeranaias/vcpchat-tui/internal/ui/chat"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

// RunTUI opens the chat screen on the topic selected by args.
func RunTUI(args Args) error {
	if err := RequiresTTY("start the chat TUI"); err != nil {
		return err
	}
	return withEnv(args, (*Env).TUI)
}

// TUI runs the chat program until the user quits.
func (e *Env) TUI(args Args) error {
	client := NewVCPClient(e.Config, e.Logger)
	defer client.Close()

	m, err := chat.New(chat.Deps{
		Config:       e.Config,
		Store:        e.Store,
		Agents:       e.Agents,
		Client:       client,
		Materializer: attach.NewMaterializer(attach.DefaultMaxFileSize, e.Logger),
		Logger:       e.Logger,
		AgentID:      e.resolveAgent(args),
		TopicID:      args.Topic,
		WatchAgents:  true,
	})
	if err != nil {
		return fmt.Errorf("start chat: %w", err)
	}
	defer m.Close()

	e.Logger.Info("chat started", zap.String("agent", e.resolveAgent(args)), zap.String("topic", args.Topic))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// NewVCPClient builds the completion client from the server section.
func NewVCPClient(cfg *config.Config, logger *zap.Logger) *vcp.Client {
	client := vcp.NewClient(logger).
		WithTimeout(cfg.Server.Timeout()).
		WithMaxRetries(cfg.Server.MaxRetries)
	if rps := cfg.Server.RequestsPerSecond; rps > 0 {
		client = client.WithRateLimit(time.Duration(float64(time.Second)/rps), 1)
	}
	return client
}
