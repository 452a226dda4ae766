// Copyright (c) binyomen
// Licensed under the MIT license

//go:build windows

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/windows"

	"github.com/binyomen/onex/internal/bundle"
	"github.com/binyomen/onex/internal/jobobject"
	"github.com/binyomen/onex/internal/onexfile"
	"github.com/binyomen/onex/internal/projfs"
)

// runFileName is the bundle-root file naming the executable to launch.
const runFileName = "onex_run"

// runApp virtualizes the archive under the temp directory and runs the
// bundle's target under a job object, so the virtualization root outlives
// every descendant process.
func runApp(f *onexfile.File, args []string) (int, error) {
	sec := f.DataSection()
	archive, err := bundle.Open(sec, sec.Size())
	if err != nil {
		return 0, err
	}

	root := filepath.Join(longTempDir(), "onex_"+uuid.NewString())
	provider, err := projfs.New(root, archive)
	if err != nil {
		return 0, err
	}
	defer provider.Close()

	target, err := readRunFile(archive)
	if err != nil {
		return 0, err
	}

	job, err := jobobject.Launch(filepath.Join(root, filepath.FromSlash(target)), args)
	if err != nil {
		return 0, err
	}
	defer job.Close()

	code, err := job.Wait()
	return int(code), err
}

func readRunFile(archive *bundle.Archive) (string, error) {
	b, err := archive.ReadAll(runFileName)
	if err != nil {
		return "", fmt.Errorf("bundle has no %s file: %w", runFileName, err)
	}
	target := strings.TrimSpace(string(b))
	if target == "" {
		return "", fmt.Errorf("%s names no executable", runFileName)
	}
	return target, nil
}

// longTempDir is os.TempDir with any 8.3 short components expanded. The
// virtualization root's spelling reaches child processes through their own
// path lookups, and short names would make those comparisons lie.
func longTempDir() string {
	short := os.TempDir()
	shortp, err := windows.UTF16PtrFromString(short)
	if err != nil {
		return short
	}

	buf := make([]uint16, windows.MAX_PATH)
	n, err := windows.GetLongPathName(shortp, &buf[0], uint32(len(buf)))
	if err != nil || n == 0 {
		return short
	}
	if n > uint32(len(buf)) {
		buf = make([]uint16, n)
		n, err = windows.GetLongPathName(shortp, &buf[0], uint32(len(buf)))
		if err != nil || n == 0 {
			return short
		}
	}
	return windows.UTF16ToString(buf[:n])
}

var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	moduser32            = windows.NewLazySystemDLL("user32.dll")
	procGetConsoleWindow = modkernel32.NewProc("GetConsoleWindow")
	procShowWindow       = moduser32.NewProc("ShowWindow")
)

const swHide = 0

func hideConsole() {
	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd != 0 {
		procShowWindow.Call(hwnd, swHide)
	}
}
