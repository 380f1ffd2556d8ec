// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vcpchat-tui/internal/agents"
	"github.com/jeranaias/vcpchat-tui/internal/config"
	"github.com/jeranaias/vcpchat-tui/internal/storage"
	"github.com/jeranaias/vcpchat-tui/internal/vcp"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"show", "--agent", "nova"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "nova", p.Flag("agent"))
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"show", "--topic=topic_1"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "topic_1", p.Flag("topic"))
			},
		},
		{
			name:    "bool-only flag does not swallow positional",
			args:    []string{"init", "--yes", "nova"},
			wantSub: "init",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("yes"))
				assert.Equal(t, "nova", p.Positional(1))
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"set", "chat.diary_label_prefixes", "Maid,", "Diary"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, 4, p.PositionalCount())
				assert.Equal(t, "Maid, Diary", strings.Join(p.PositionalFrom(2), " "))
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"set", "--", "user.name", "--weird"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "--weird", p.Positional(2))
				assert.False(t, p.HasFlag("weird"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			assert.Equal(t, tt.wantSub, parser.Subcommand())
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		defaultVal int
		want       int
	}{
		{"flag present", []string{"cmd", "--limit", "10"}, 5, 10},
		{"flag missing uses default", []string{"cmd"}, 5, 5},
		{"invalid int uses default", []string{"cmd", "--limit", "abc"}, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewArgParser(tt.args).FlagIntOrDefault("limit", tt.defaultVal))
		})
	}
}

func TestArgParser_EdgeCases(t *testing.T) {
	empty := NewArgParser([]string{})
	assert.Empty(t, empty.Subcommand())
	assert.Zero(t, empty.PositionalCount())
	assert.Empty(t, empty.Positional(3))
	assert.Empty(t, empty.PositionalFrom(1))

	flags := NewArgParser([]string{"--verbose", "--json"})
	assert.Empty(t, flags.Subcommand())
	assert.True(t, flags.BoolFlag("verbose"))
	assert.True(t, flags.BoolFlag("json"))
	assert.True(t, flags.HasFlag("--json"))
	assert.False(t, flags.HasFlag("missing"))

	p := NewArgParser([]string{"cmd", "--present", "value"})
	assert.Equal(t, "value", p.FlagOrDefault("present", "default"))
	assert.Equal(t, "default", p.FlagOrDefault("missing", "default"))
}

func TestParseBoolString(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "yes", "Y", "1", "on"} {
		got, err := ParseBoolString(v)
		require.NoError(t, err, v)
		assert.True(t, got, v)
	}
	for _, v := range []string{"false", "No", "n", "0", "OFF"} {
		got, err := ParseBoolString(v)
		require.NoError(t, err, v)
		assert.False(t, got, v)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{
			name:    "no args starts the TUI",
			argv:    nil,
			wantCmd: CmdTUI,
		},
		{
			name:    "leading flags belong to the TUI",
			argv:    []string{"--agent", "nova", "-t", "topic_2"},
			wantCmd: CmdTUI,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "nova", a.Agent)
				assert.Equal(t, "topic_2", a.Topic)
			},
		},
		{
			name:    "chat alias",
			argv:    []string{"chat", "-a", "nova"},
			wantCmd: CmdTUI,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "nova", a.Agent)
			},
		},
		{
			name:    "export flags",
			argv:    []string{"export", "--agent", "nova", "--topic", "topic_1", "-f", "md", "-o", "out.md", "--open"},
			wantCmd: CmdExport,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "md", a.Format)
				assert.Equal(t, "out.md", a.Out)
				assert.True(t, a.Open)
			},
		},
		{
			name:    "global flags anywhere",
			argv:    []string{"history", "list", "--json", "--config", "/tmp/c.toml", "--verbose"},
			wantCmd: CmdHistory,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.True(t, a.Verbose)
				assert.Equal(t, "/tmp/c.toml", a.ConfigPath)
				assert.Equal(t, "list", a.Subcommand)
			},
		},
		{
			name:    "config equals form",
			argv:    []string{"--config=/x/y.toml", "config", "path"},
			wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/x/y.toml", a.ConfigPath)
				assert.Equal(t, "path", a.Subcommand)
			},
		},
		{
			name:    "topics alias with yes",
			argv:    []string{"topics", "delete", "-y"},
			wantCmd: CmdHistory,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.Yes)
			},
		},
		{
			name:    "agent alias",
			argv:    []string{"agent", "show", "nova"},
			wantCmd: CmdAgents,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "show", a.Subcommand)
				assert.Equal(t, []string{"show", "nova"}, a.Raw)
			},
		},
		{name: "version flag", argv: []string{"-v"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"history", "--help"}, wantCmd: CmdHelp},
		{
			name:    "unknown command",
			argv:    []string{"frobnicate", "now"},
			wantCmd: CmdHelp,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, []string{"frobnicate", "now"}, a.Raw)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd, "got %s", cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestHandleVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HandleVersion(Args{}, &buf))
	assert.Contains(t, buf.String(), "vcpchat version "+Version)

	buf.Reset()
	require.NoError(t, HandleVersion(Args{JSON: true}, &buf))
	assert.Contains(t, buf.String(), `"version": "`+Version+`"`)
	assert.Contains(t, buf.String(), `"success": true`)
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	out := buf.String()
	for _, cmd := range []string{"export", "history", "agents", "config", "/attach"} {
		assert.Contains(t, out, cmd)
	}
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", ErrMissingArgument("--topic", ""), ExitUsageError},
		{"not found", &NotFoundError{Resource: "topic", ID: "a/b"}, ExitNotFoundError},
		{"history not found wrapped", fmt.Errorf("load: %w", storage.ErrHistoryNotFound), ExitNotFoundError},
		{"agent not found", agents.ErrAgentNotFound, ExitNotFoundError},
		{"config validation", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"auth", fmt.Errorf("send: %w", vcp.ErrAuthFailed), ExitAuthError},
		{"not configured", vcp.ErrNotConfigured, ExitConfigError},
		{"network", errors.New("dial tcp: connection refused"), ExitNetworkError},
		{"general", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, NewCommandError("history", "delete", errors.New("disk full")), false)
	assert.Contains(t, buf.String(), "history delete: disk full")

	buf.Reset()
	DisplayError(&buf, &NotFoundError{Resource: "agent", ID: "nova"}, true)
	assert.Contains(t, buf.String(), `"error_type": "not_found_error"`)
	assert.Contains(t, buf.String(), `"id": "nova"`)

	buf.Reset()
	DisplayError(&buf, nil, false)
	assert.Empty(t, buf.String())
}

func TestErrUnknownSubcommand(t *testing.T) {
	err := ErrUnknownSubcommand("history", "purge", []string{"list", "show"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "purge", ve.Value)
	assert.Contains(t, err.Error(), "vcpchat history list|show")
}

// =============================================================================
// CONFIRMATION TESTS (confirm.go)
// =============================================================================

func TestRequireConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    ConfirmationOptions
		want    bool
		wantErr error
	}{
		{"yes flag skips prompt", "", ConfirmationOptions{Yes: true}, true, nil},
		{"json mode needs yes", "y\n", ConfirmationOptions{JSONMode: true, Interactive: true}, false, ErrConfirmationRequired},
		{"non-interactive needs yes", "y\n", ConfirmationOptions{}, false, ErrConfirmationRequired},
		{"user accepts", "yes\n", ConfirmationOptions{Interactive: true}, true, nil},
		{"user declines", "n\n", ConfirmationOptions{Interactive: true}, false, nil},
		{"eof declines", "", ConfirmationOptions{Interactive: true}, false, nil},
		{"answer without newline", "Y", ConfirmationOptions{Interactive: true}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := RequireConfirmation(strings.NewReader(tt.input), &out, "delete topic", tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequireConfirmation_ShowsDetails(t *testing.T) {
	var out bytes.Buffer
	ok, err := RequireConfirmation(strings.NewReader("y\n"), &out, "delete topic nova/t1", ConfirmationOptions{
		Interactive: true,
		Details:     [][2]string{{"Agent", "nova"}, {"Messages", "4"}},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "nova")
	assert.Contains(t, out.String(), "cannot be undone")
	assert.Contains(t, out.String(), "delete topic nova/t1? [y/N]")
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkArgParser_Complex(b *testing.B) {
	args := []string{"export", "--agent", "nova", "--topic", "topic_1", "--format=md", "--open", "-o", "chat.md"}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}
