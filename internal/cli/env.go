// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared command environment: config, logger, history store and
// agent registry.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/agents"
	"github.com/jeranaias/vcpchat-tui/internal/config"
	"github.com/jeranaias/vcpchat-tui/internal/logging"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
)

// commandTimeout bounds the store and registry calls of one non-TUI command.
const commandTimeout = 30 * time.Second

// Env carries what every command needs once the configuration is loaded.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	Store  storage.HistoryStore
	Agents *agents.Registry

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive reports whether prompts can be shown.
	Interactive bool
}

// LoadConfig loads the file named by --config, or the default config file.
// A broken default file falls back to defaults with a warning on errOut.
func LoadConfig(path string, errOut io.Writer) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	if err != nil {
		fmt.Fprintf(errOut, "%s %v (using defaults)\n", WarningStyle.Render("Warning:"), err)
	}
	return cfg, nil
}

// OpenEnv loads the configuration and opens the history store and agent
// registry it names. The caller must Close the result.
func OpenEnv(args Args) (*Env, error) {
	cfg, err := LoadConfig(args.ConfigPath, os.Stderr)
	if err != nil {
		return nil, err
	}
	return NewEnv(cfg, args, os.Stdin, os.Stdout, os.Stderr)
}

// NewEnv builds an Env from an already loaded configuration.
func NewEnv(cfg *config.Config, args Args, in io.Reader, out, errOut io.Writer) (*Env, error) {
	level := cfg.Logging.Level
	if args.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("config: logging: %w", err)
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open history store: %w", err)
	}

	logger.Debug("environment ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("history_dir", cfg.Storage.Dir),
		zap.String("agents_dir", cfg.Storage.AgentsDir))

	return &Env{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Agents:      agents.NewRegistry(cfg.Storage.AgentsDir, logger),
		In:          in,
		Out:         out,
		Err:         errOut,
		Interactive: in == os.Stdin && IsTTY(),
	}, nil
}

// Close releases the store, the registry watcher and the logger.
func (e *Env) Close() error {
	var firstErr error
	if e.Agents != nil {
		if err := e.Agents.Close(); err != nil {
			firstErr = err
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.Logger != nil {
		_ = e.Logger.Sync()
	}
	return firstErr
}

func (e *Env) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// resolveAgent returns --agent or the configured default agent.
func (e *Env) resolveAgent(args Args) string {
	if args.Agent != "" {
		return args.Agent
	}
	return e.Config.Chat.DefaultAgent
}

// requireTopic returns the agent and topic a command operates on.
func (e *Env) requireTopic(args Args, command string) (string, string, error) {
	agentID := e.resolveAgent(args)
	if agentID == "" {
		return "", "", ErrMissingArgument("--agent", "vcpchat "+command+" --agent <id> --topic <id>")
	}
	if args.Topic == "" {
		return "", "", ErrMissingArgument("--topic", "vcpchat "+command+" --agent "+agentID+" --topic <id>")
	}
	return agentID, args.Topic, nil
}
