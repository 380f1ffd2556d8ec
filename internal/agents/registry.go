// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/vcpchat-tui/internal/util"
)

// ErrAgentNotFound is returned when no config file exists for an agent id.
var ErrAgentNotFound = errors.New("agent not found")

// ErrInvalidID is returned for ids that are not a single path element.
var ErrInvalidID = errors.New("invalid agent id")

// Config file names, in lookup order.
var configFiles = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry loads agent configs from <dir>/<id>/config.{toml,yaml,json}.
//
// Loaded configs are cached until the file changes (see Watch) or
// Invalidate is called. Registry is safe for concurrent use.
type Registry struct {
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Config

	watchMu sync.Mutex
	watcher *agentWatcher
}

// NewRegistry creates a registry rooted at dir.
func NewRegistry(dir string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		dir:    dir,
		logger: logger.Named("agents"),
		cache:  make(map[string]*Config),
	}
}

// Dir returns the registry root.
func (r *Registry) Dir() string {
	return r.dir
}

// AgentDir returns the directory of one agent.
func (r *Registry) AgentDir(id string) string {
	return filepath.Join(r.dir, id)
}

// AgentConfig returns the config for id. The returned value is a copy.
func (r *Registry) AgentConfig(ctx context.Context, id string) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	cached, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		c := *cached
		return &c, nil
	}

	cfg, err := r.load(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[id] = cfg
	r.mu.Unlock()

	c := *cfg
	return &c, nil
}

// load reads the first config file present for id.
func (r *Registry) load(id string) (*Config, error) {
	dir := r.AgentDir(id)
	for _, name := range configFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read agent config %s: %w", path, err)
		}

		cfg := &Config{}
		if err := decode(name, data, cfg); err != nil {
			return nil, fmt.Errorf("parse agent config %s: %w", path, err)
		}
		cfg.ID = id
		if cfg.Avatar != "" && !filepath.IsAbs(cfg.Avatar) && !strings.Contains(cfg.Avatar, "://") {
			cfg.Avatar = filepath.Join(dir, cfg.Avatar)
		}
		if cfg.Avatar == "" {
			cfg.Avatar = findAvatar(dir)
		}
		r.logger.Debug("loaded agent", zap.String("agent_id", id), zap.String("file", name))
		return cfg, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
}

func decode(name string, data []byte, cfg *Config) error {
	switch filepath.Ext(name) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// findAvatar returns the first avatar.* image in dir.
func findAvatar(dir string) string {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp"} {
		path := filepath.Join(dir, "avatar"+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// List returns the configs of every agent that has a readable config file,
// sorted by id. Broken configs are logged and skipped.
func (r *Registry) List(ctx context.Context) ([]*Config, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read agents dir: %w", err)
	}

	var out []*Config
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cfg, err := r.AgentConfig(ctx, e.Name())
		if err != nil {
			if !errors.Is(err, ErrAgentNotFound) {
				r.logger.Warn("skipping agent", zap.String("agent_id", e.Name()), zap.Error(err))
			}
			continue
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save writes cfg as <dir>/<id>/config.toml and drops the cached copy.
// config.toml is first in lookup order, so it shadows any JSON or YAML file.
func (r *Registry) Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil agent config")
	}
	if err := ValidateID(cfg.ID); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# vcpchat agent configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode agent config: %w", err)
	}

	path := filepath.Join(r.AgentDir(cfg.ID), "config.toml")
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write agent config: %w", err)
	}
	r.Invalidate(cfg.ID)
	return nil
}

// Invalidate drops the cached config for id.
func (r *Registry) Invalidate(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

// ValidateID rejects ids that could escape the registry directory.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
