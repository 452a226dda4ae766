// Copyright (c) binyomen
// Licensed under the MIT license

// Command testapp is a minimal packaged program: it reports the arguments
// it received and walks the directory holding its own executable, which
// exercises enumeration, metadata and file reads through the virtualized
// tree.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func main() {
	fmt.Print("Args: ")
	for _, a := range os.Args {
		fmt.Printf("%q ", a)
	}
	fmt.Println()

	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("Directory contents:")
	root := filepath.Dir(exe)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d bytes)\n", p, info.Size())
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
