// Copyright (c) binyomen
// Licensed under the MIT license

// Package bundle produces and reads the application archive: a zip whose
// entries are stored uncompressed, named with forward slashes relative to
// the bundle root.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/binyomen/onex/internal/seekbuf"
)

var ErrNotDir = errors.New("bundle: not a directory")

// FromDir walks dir depth-first and returns the archive bytes. Within each
// directory, files are emitted before subdirectories, each group in
// lexicographic order, so the produced archive is deterministic. Empty
// directories get directory entries; the root itself does not.
//
// exclude holds doublestar patterns matched against each entry's
// slash-separated relative name; a matching directory is skipped whole.
func FromDir(dir string, exclude []string) ([]byte, error) {
	stat, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, ErrNotDir
	}

	buf := seekbuf.New(nil)
	zw := zip.NewWriter(buf)
	if err := addTree(zw, dir, ".", exclude); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addTree(zw *zip.Writer, root, rel string, exclude []string) error {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}

	for _, d := range entries {
		if d.IsDir() {
			continue
		}
		name := path.Join(rel, d.Name())
		if excluded(name, exclude) {
			continue
		}
		if err := addFile(zw, root, name); err != nil {
			return err
		}
	}
	for _, d := range entries {
		if !d.IsDir() {
			continue
		}
		name := path.Join(rel, d.Name())
		if excluded(name, exclude) {
			continue
		}
		if _, err := zw.CreateHeader(&zip.FileHeader{Name: name + "/", Method: zip.Store}); err != nil {
			return err
		}
		if err := addTree(zw, root, name, exclude); err != nil {
			return err
		}
	}
	return nil
}

func addFile(zw *zip.Writer, root, name string) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("bundle: storing %s: %w", name, err)
	}
	return nil
}

func excluded(name string, exclude []string) bool {
	for _, pattern := range exclude {
		if doublestar.MatchUnvalidated(pattern, name) {
			return true
		}
	}
	return false
}
