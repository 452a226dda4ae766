// Copyright (c) binyomen
// Licensed under the MIT license

//go:build windows

package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/binyomen/onex/internal/bundle"
	"github.com/binyomen/onex/internal/onexfile"
	"github.com/binyomen/onex/internal/projfs"
)

// cmdMount virtualizes an app (or, for quick experiments, a plain
// directory packed in memory) at the given root, prints "ready", and tears
// down when stdin sees a line.
func cmdMount(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: onex mount <app|app_dir> <root>")
	}
	src, root := args[0], args[1]

	archive, cleanup, err := openSource(src)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := projfs.New(root, archive)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Println("ready")
	bufio.NewReader(os.Stdin).ReadString('\n')
	return nil
}

func openSource(src string) (*bundle.Archive, func(), error) {
	stat, err := os.Stat(src)
	if err != nil {
		return nil, nil, err
	}

	if stat.IsDir() {
		raw, err := bundle.FromDir(src, nil)
		if err != nil {
			return nil, nil, err
		}
		a, err := bundle.Open(bytes.NewReader(raw), int64(len(raw)))
		if err != nil {
			return nil, nil, err
		}
		return a, func() {}, nil
	}

	f, err := onexfile.Open(src)
	if err != nil {
		return nil, nil, err
	}
	sec := f.DataSection()
	a, err := bundle.Open(sec, sec.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return a, func() { f.Close() }, nil
}
