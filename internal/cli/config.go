// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for vcpchat.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display the effective configuration
//   get <key>           Print one value
//   set <key> <value>   Set a value in the config file
//   init                Write a default config file
//   reset               Same as init --yes
//   path                Show the configuration file path
//
// Examples:
//   vcpchat config set server.url http://localhost:6005/v1/chat/completions
//   vcpchat config set chat.diary_label_prefixes "Diary,日记"
//   vcpchat config get ui.theme
//   vcpchat config show --json

package cli

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/vcpchat-tui/internal/config"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(args Args, w io.Writer) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}
	p := NewArgParser(args.Raw)

	switch args.Subcommand {
	case "", "show":
		return configShow(args, path, w)
	case "path":
		return configPathCmd(args, path, w)
	case "get":
		return configGet(args, p.Positional(1), w)
	case "set":
		return configSet(args, path, p.Positional(1), strings.Join(p.PositionalFrom(2), " "), w)
	case "init":
		return configInit(args, path, args.Yes, w)
	case "reset":
		return configInit(args, path, true, w)
	default:
		return ErrUnknownSubcommand("config", args.Subcommand, []string{"show", "get", "set", "init", "reset", "path"})
	}
}

// configPath returns --config or the default TOML path.
func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "", fmt.Errorf("config path: %w", err)
	}
	return path, nil
}

func configShow(args Args, path string, w io.Writer) error {
	cfg, err := LoadConfig(args.ConfigPath, os.Stderr)
	if err != nil {
		return err
	}

	if args.JSON {
		safe := cfg.Clone()
		safe.Server.APIKey = maskAPIKey(safe.Server.APIKey)
		return NewJSONResponse("config show", ConfigData{Path: path, Config: safe}).Print(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("vcpchat Configuration"))
	section := ""
	for _, key := range config.GetAllKeys() {
		name, field, _ := strings.Cut(key, ".")
		if name != section {
			if section != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, SectionStyle.Render("["+name+"]"))
			section = name
		}
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s\n", RenderField(field+":", maskIfSecret(key, formatValue(value))))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, RenderSeparator(41))
	fmt.Fprintf(w, "Config file: %s\n", DimStyle.Render(path))
	return nil
}

func configPathCmd(args Args, path string, w io.Writer) error {
	if args.JSON {
		return NewJSONResponse("config path", ConfigData{Path: path}).Print(w)
	}
	fmt.Fprintln(w, path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !args.Quiet {
		fmt.Fprintf(os.Stderr, "%s (file does not exist - run vcpchat config init)\n", DimStyle.Render("Note"))
	}
	return nil
}

func configGet(args Args, key string, w io.Writer) error {
	if key == "" {
		return ErrMissingArgument("key", "vcpchat config get server.url")
	}
	cfg, err := LoadConfig(args.ConfigPath, os.Stderr)
	if err != nil {
		return err
	}
	value, err := cfg.Get(key)
	if err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "vcpchat config get ui.theme")
	}
	shown := maskIfSecret(key, formatValue(value))

	if args.JSON {
		return NewJSONResponse("config get", map[string]string{"key": key, "value": shown}).Print(w)
	}
	fmt.Fprintln(w, shown)
	return nil
}

// configSet edits the file itself. Environment overrides are not applied so
// they never end up persisted.
func configSet(args Args, path, key, value string, w io.Writer) error {
	if key == "" {
		return ErrMissingArgument("key", "vcpchat config set <key> <value>")
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := cfg.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "vcpchat config set ui.theme light")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveConfigFile(cfg, path); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config set", map[string]string{"key": key, "value": maskIfSecret(key, value)}).Print(w)
	}
	if !args.Quiet {
		fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("[OK]"), key, maskIfSecret(key, value))
	}
	return nil
}

func configInit(args Args, path string, overwrite bool, w io.Writer) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return NewValidationErrorWithExample("config", path, "file already exists", "vcpchat config init --yes")
	}
	cfg := config.Default()
	if err := saveConfigFile(cfg, path); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config init", ConfigData{Path: path}).Print(w)
	}
	if !args.Quiet {
		fmt.Fprintf(w, "%s Wrote default configuration\n", SuccessStyle.Render("[OK]"))
		fmt.Fprintf(w, "Config file: %s\n", DimStyle.Render(path))
	}
	return nil
}

func saveConfigFile(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case []string:
		return strings.Join(x, ",")
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// maskAPIKey replaces a key with a short SHA-256 fingerprint.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("sha256:%x...", hash[:4])
}

// maskIfSecret masks the value if the key names a secret.
func maskIfSecret(key, value string) string {
	keyLower := strings.ToLower(key)
	for _, s := range []string{"key", "secret", "token", "password"} {
		if strings.Contains(keyLower, s) {
			return maskAPIKey(value)
		}
	}
	return value
}
