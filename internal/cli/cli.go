// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for vcpchat.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdExport
	CmdHistory
	CmdAgents
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name used on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdExport:
		return "export"
	case CmdHistory:
		return "history"
	case CmdAgents:
		return "agents"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config FILE
	JSON       bool   // Output in JSON format
	Quiet      bool
	Verbose    bool

	// Command-specific
	Subcommand string
	Agent      string
	Topic      string
	Format     string
	Out        string
	Open       bool
	Yes        bool

	// Raw args (remaining after the command name)
	Raw []string
}

const usageText = `vcpchat - terminal chat client for VCP servers

Usage:
  vcpchat                          Start the chat TUI (default)
  vcpchat tui [--agent ID] [--topic ID]
  vcpchat export --agent ID --topic ID [--format html|md|json] [--out FILE] [--open]
  vcpchat history list [--agent ID]
  vcpchat history show --agent ID --topic ID
  vcpchat history delete --agent ID --topic ID [--yes]
  vcpchat agents list
  vcpchat agents show ID
  vcpchat agents init ID
  vcpchat config [show|init|path|get KEY|set KEY VALUE]
  vcpchat version

Global Flags:
  --config FILE     Use FILE instead of ~/.vcpchat/config.toml
  --json            Machine-readable output
  -q, --quiet       Less output
  --verbose         Log at debug level

TUI Keys:
  Enter             Send (compose) / open the message menu (messages)
  Tab               Switch between compose and message navigation
  e c b v r d       Edit, copy, branch, read, regenerate, delete
  Ctrl+C            Cancel the reply in progress, or quit
  Ctrl+Q            Quit

Compose Commands:
  /attach PATH      Attach a file to the next message
  /detach           Drop pending attachments
  /new              Start a new topic

Environment:
  VCPCHAT_HOME        Data directory (default ~/.vcpchat)
  VCPCHAT_SERVER_URL  Completion endpoint
  VCPCHAT_API_KEY     Server key
  VCPCHAT_USER        Display name of the user
  VCPCHAT_LOG_LEVEL   debug, info, warn or error
  VCPCHAT_STORAGE     json or sqlite

Examples:
  vcpchat --agent nova                       Chat with the newest topic of nova
  vcpchat export --agent nova --topic topic_1 --format md --out chat.md
  vcpchat history list --json

Version: %s
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "vcpchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// If no remaining args, default to TUI
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	if strings.HasPrefix(cmd, "-") {
		// Command flags without a command name belong to the TUI.
		parseCommandArgs(&parsedArgs, remaining)
		return CmdTUI, parsedArgs
	}
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui", "chat":
		parseCommandArgs(&parsedArgs, remaining)
		return CmdTUI, parsedArgs

	case "export":
		parseCommandArgs(&parsedArgs, remaining)
		return CmdExport, parsedArgs

	case "history", "topics":
		parseCommandArgs(&parsedArgs, remaining)
		return CmdHistory, parsedArgs

	case "agents", "agent":
		parseCommandArgs(&parsedArgs, remaining)
		return CmdAgents, parsedArgs

	case "config":
		parseCommandArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version":
		return CmdVersion, parsedArgs

	case "help":
		return CmdHelp, parsedArgs

	default:
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "-v", "--version":
			return []string{"version"}, parsedArgs
		case "-h", "--help":
			return []string{"help"}, parsedArgs
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsedArgs
}

// parseCommandArgs fills the command-specific fields shared by every
// command from remaining.
func parseCommandArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Subcommand = p.Subcommand()
	args.Agent = p.FlagOrDefault("agent", p.Flag("a"))
	args.Topic = p.FlagOrDefault("topic", p.Flag("t"))
	args.Format = p.FlagOrDefault("format", p.Flag("f"))
	args.Out = p.FlagOrDefault("out", p.Flag("o"))
	args.Open = p.BoolFlag("open")
	args.Yes = p.BoolFlag("yes") || p.BoolFlag("y")
	args.Raw = remaining
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// Run executes cmd and returns the process exit code. Errors are printed in
// the requested output mode.
func Run(cmd Command, args Args) int {
	var err error
	switch cmd {
	case CmdTUI:
		err = RunTUI(args)
	case CmdExport:
		err = withEnv(args, (*Env).Export)
	case CmdHistory:
		err = withEnv(args, (*Env).History)
	case CmdAgents:
		err = withEnv(args, (*Env).AgentsCmd)
	case CmdConfig:
		err = HandleConfig(args, os.Stdout)
	case CmdVersion:
		err = HandleVersion(args, os.Stdout)
	case CmdHelp:
		PrintUsage(os.Stdout)
		if len(args.Raw) > 0 {
			err = NewValidationErrorWithExample("command", args.Raw[0], "unknown command", "vcpchat help")
		}
	}

	if err != nil {
		DisplayError(os.Stderr, err, args.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// withEnv opens the data environment, runs fn and closes it.
func withEnv(args Args, fn func(*Env, Args) error) error {
	env, err := OpenEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env, args)
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(args Args, w io.Writer) error {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		return NewJSONResponse("version", data).Print(w)
	}
	PrintVersion(w)
	return nil
}
