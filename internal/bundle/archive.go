// Copyright (c) binyomen
// Licensed under the MIT license

package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Archive is a read-only view of an opened application archive.
type Archive struct {
	*zip.Reader
}

func Open(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	return &Archive{Reader: zr}, nil
}

// Names returns every entry name in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.File))
	for i, f := range a.File {
		names[i] = f.Name
	}
	return names
}

// OpenByName returns a stream positioned at the start of the named entry,
// together with the entry's uncompressed size.
func (a *Archive) OpenByName(name string) (io.ReadCloser, int64, error) {
	for _, f := range a.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, 0, err
			}
			return rc, int64(f.UncompressedSize64), nil
		}
	}
	return nil, 0, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// ReadAll returns the whole contents of the named entry. Entries are read
// whole everywhere in this program; the stored format has no useful
// random access within one entry.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	rc, size, err := a.OpenByName(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, size)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return nil, fmt.Errorf("bundle: reading %s: %w", name, err)
	}
	return buf, nil
}

// List writes one line per entry, in archive order, with backslash names.
func List(r io.ReaderAt, size int64, w io.Writer) error {
	a, err := Open(r, size)
	if err != nil {
		return err
	}
	for _, f := range a.File {
		name := strings.ReplaceAll(f.Name, "/", `\`)
		if _, err := fmt.Fprintf(w, "%s (%d/%d bytes compressed/uncompressed)\n",
			name, f.CompressedSize64, f.UncompressedSize64); err != nil {
			return err
		}
	}
	return nil
}

// Extract materializes every entry under outputRoot.
func Extract(r io.ReaderAt, size int64, outputRoot string) error {
	a, err := Open(r, size)
	if err != nil {
		return err
	}
	for _, f := range a.File {
		if !fs.ValidPath(strings.TrimSuffix(f.Name, "/")) {
			return fmt.Errorf("bundle: refusing entry name %q", f.Name)
		}
		out := filepath.Join(outputRoot, filepath.FromSlash(f.Name))

		if strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, out); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := os.Create(out)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return errors.Join(err, os.Remove(out))
	}
	return w.Close()
}
