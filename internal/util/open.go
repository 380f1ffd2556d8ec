// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenPath hands a file path or URL to the platform's default handler. It
// returns once the handler has started.
func OpenPath(target string) error {
	cmd, err := openCommand(runtime.GOOS, target)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	go cmd.Wait() //nolint:errcheck // reap the launcher
	return nil
}

func openCommand(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "windows":
		return exec.Command("cmd", "/c", "start", `""`, target), nil
	case "darwin":
		return exec.Command("open", target), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
