// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation of destructive CLI actions.
//
// The pattern is the same for every command:
//  1. --yes proceeds without prompting
//  2. --json requires --yes (no interactive prompts in JSON mode)
//  3. A non-terminal stdin requires --yes
//  4. Otherwise the user is asked

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConfirmationOptions controls RequireConfirmation.
type ConfirmationOptions struct {
	// Yes is set by --yes.
	Yes bool
	// JSONMode is set by --json.
	JSONMode bool
	// Interactive reports whether In is a terminal.
	Interactive bool
	// Details are shown above the prompt, in order.
	Details [][2]string
}

// ErrConfirmationRequired is returned when a prompt is needed but cannot be
// shown.
var ErrConfirmationRequired = errors.New("confirmation required: pass --yes")

// RequireConfirmation asks whether to perform action. It reports false when
// the user declines.
func RequireConfirmation(in io.Reader, out io.Writer, action string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode || !opts.Interactive {
		return false, ErrConfirmationRequired
	}

	if len(opts.Details) > 0 {
		fmt.Fprintln(out, WarningStyle.Render("WARNING: Destructive Action"))
		fmt.Fprintln(out, RenderSeparator(50))
		for _, d := range opts.Details {
			fmt.Fprintf(out, "  %s%s\n", RenderLabel(d[0]+":"), d[1])
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, ErrorStyle.Render("This action cannot be undone."))
	}
	fmt.Fprintf(out, "Are you sure you want to %s? [y/N]: ", action)

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}
