// Copyright (c) binyomen
// Licensed under the MIT license

// Command onex packages a directory tree together with a loader executable
// into a single self-contained file, and pokes at files so packaged.
//
//	onex pack [-loader exe] [-exclude glob]... <app_dir> <output>
//	onex swap [-output path] <app> <new_loader>
//	onex list <app>
//	onex extract <app> <output_dir>
//	onex check <app>
//	onex mount <app|app_dir> <root>
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/binyomen/onex/internal/bundle"
	"github.com/binyomen/onex/internal/onexfile"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	var err error
	switch args[0] {
	case "pack":
		err = cmdPack(args[1:])
	case "swap":
		err = cmdSwap(args[1:])
	case "list":
		err = cmdList(args[1:])
	case "extract":
		err = cmdExtract(args[1:])
	case "check":
		return cmdCheck(args[1:])
	case "mount":
		err = cmdMount(args[1:])
	default:
		usage()
		return 2
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "onex:", err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: onex <pack|swap|list|extract|check|mount> ...`)
}

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string     { return fmt.Sprint(*l) }
func (l *stringList) Set(s string) error { *l = append(*l, s); return nil }

func cmdPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	loaderPath := fs.String("loader", "", "loader executable (default: onex_loader.exe beside this program)")
	var exclude stringList
	fs.Var(&exclude, "exclude", "doublestar pattern of entries to omit (repeatable)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("usage: onex pack [-loader exe] [-exclude glob]... <app_dir> <output>")
	}
	appDir, output := fs.Arg(0), fs.Arg(1)

	loader := *loaderPath
	if loader == "" {
		exe, err := os.Executable()
		if err != nil {
			return err
		}
		loader = filepath.Join(filepath.Dir(exe), "onex_loader.exe")
	}
	loaderBytes, err := os.ReadFile(loader)
	if err != nil {
		return fmt.Errorf("reading loader: %w", err)
	}

	archiveBytes, err := bundle.FromDir(appDir, exclude)
	if err != nil {
		return err
	}

	return os.WriteFile(output, onexfile.Generate(loaderBytes, archiveBytes), 0o755)
}

func cmdSwap(args []string) error {
	fs := flag.NewFlagSet("swap", flag.ExitOnError)
	output := fs.String("output", "", "write here instead of modifying in place")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("usage: onex swap [-output path] <app> <new_loader>")
	}
	appPath, loaderPath := fs.Arg(0), fs.Arg(1)

	loaderBytes, err := os.ReadFile(loaderPath)
	if err != nil {
		return fmt.Errorf("reading loader: %w", err)
	}

	f, err := onexfile.Open(appPath)
	if err != nil {
		return err
	}
	data, err := f.Data()
	f.Close()
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = appPath
	}
	return os.WriteFile(out, onexfile.Generate(loaderBytes, data), 0o755)
}

func cmdList(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: onex list <app>")
	}
	f, err := onexfile.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	sec := f.DataSection()
	return bundle.List(sec, sec.Size(), os.Stdout)
}

func cmdExtract(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: onex extract <app> <output_dir>")
	}
	f, err := onexfile.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	sec := f.DataSection()
	return bundle.Extract(sec, sec.Size(), args[1])
}

func cmdCheck(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: onex check <app>")
		return 2
	}
	if !onexfile.Check(args[0]) {
		fmt.Fprintln(os.Stderr, "This is not an ONEX file.")
		return 1
	}
	return 0
}
