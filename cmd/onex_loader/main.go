// Copyright (c) binyomen
// Licensed under the MIT license

// The loader is the native half of a packaged application. It opens its own
// executable image, finds the embedded archive, materializes it, and runs
// the program the bundle names, passing through its own arguments.
package main

import (
	"log/slog"
	"os"
	"os/signal"

	"github.com/binyomen/onex/internal/onexfile"
)

func main() {
	os.Exit(run())
}

func run() int {
	// When a packaged app is run from the start menu, a console window is
	// created for the loader. If the user closes that console before the
	// app exits, the loader dies without cleaning up. Hide the window.
	hideConsole()

	// Ctrl-C belongs to the child; the loader must survive it to tear down.
	signal.Ignore(os.Interrupt)

	exe, err := os.Executable()
	if err != nil {
		slog.Error("currentExe", "err", err)
		return 1
	}

	f, err := onexfile.Open(exe)
	if err != nil {
		slog.Error("openSelf", "path", exe, "err", err)
		return 1
	}
	defer f.Close()

	code, err := runApp(f, os.Args[1:])
	if err != nil {
		slog.Error("runApp", "err", err)
		return 1
	}
	return code
}
