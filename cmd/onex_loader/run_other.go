// Copyright (c) binyomen
// Licensed under the MIT license

//go:build !windows

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/binyomen/onex/internal/bundle"
	"github.com/binyomen/onex/internal/onexfile"
)

const runFileName = "onex_run"

func hideConsole() {}

// runApp on hosts without ProjFS falls back to eager extraction: unpack the
// bundle into the temp directory, run the target, delete the tree.
func runApp(f *onexfile.File, args []string) (int, error) {
	sec := f.DataSection()

	root := filepath.Join(os.TempDir(), "onex_"+uuid.NewString())
	if err := bundle.Extract(sec, sec.Size(), root); err != nil {
		return 0, err
	}
	defer func() {
		if err := os.RemoveAll(root); err != nil {
			slog.Error("removeExtractedTree", "path", root, "err", err)
		}
	}()

	b, err := os.ReadFile(filepath.Join(root, runFileName))
	if err != nil {
		return 0, fmt.Errorf("bundle has no %s file: %w", runFileName, err)
	}
	target := strings.TrimSpace(string(b))
	if target == "" {
		return 0, fmt.Errorf("%s names no executable", runFileName)
	}

	// archive entries carry no mode bits, so the extracted target is not
	// runnable until we make it so
	exePath := filepath.Join(root, filepath.FromSlash(target))
	if err := os.Chmod(exePath, 0o755); err != nil {
		return 0, err
	}

	cmd := exec.Command(exePath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, err
	}
	return 0, nil
}
