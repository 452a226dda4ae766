// Copyright (c) binyomen
// Licensed under the MIT license

package bundle

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// the layout every end-to-end scenario uses
func makeAssets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "file1.txt", "file1 contents\n")
	writeFile(t, dir, "onex_run", "testapp.exe\n")
	writeFile(t, dir, "dir1/file2.txt", "file2 contents\n")
	writeFile(t, dir, "dir1/file3.txt", "file3 contents\n")
	return dir
}

func writeFile(t *testing.T, root, name, contents string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustArchive(t *testing.T, dir string, exclude []string) (*Archive, []byte) {
	t.Helper()
	raw, err := FromDir(dir, exclude)
	if err != nil {
		t.Fatal(err)
	}
	a, err := Open(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatal(err)
	}
	return a, raw
}

func TestFromDirOrder(t *testing.T) {
	a, _ := mustArchive(t, makeAssets(t), nil)

	want := []string{"file1.txt", "onex_run", "dir1/", "dir1/file2.txt", "dir1/file3.txt"}
	if got := a.Names(); !slices.Equal(got, want) {
		t.Errorf("archive order %v, want %v", got, want)
	}
}

func TestFromDirDeterministic(t *testing.T) {
	dir := makeAssets(t)
	raw1, err := FromDir(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	raw2, err := FromDir(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw1, raw2) {
		t.Error("two walks of the same tree produced different archives")
	}
}

func TestFromDirNotDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f", "")
	if _, err := FromDir(filepath.Join(dir, "f"), nil); !errors.Is(err, ErrNotDir) {
		t.Errorf("expected ErrNotDir, got %v", err)
	}
	if _, err := FromDir(filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestStoredOnly(t *testing.T) {
	a, _ := mustArchive(t, makeAssets(t), nil)
	for _, f := range a.File {
		if f.Method != 0 {
			t.Errorf("%s: method %d, want stored", f.Name, f.Method)
		}
		if f.CompressedSize64 != f.UncompressedSize64 {
			t.Errorf("%s: %d/%d bytes", f.Name, f.CompressedSize64, f.UncompressedSize64)
		}
	}
}

func TestExclude(t *testing.T) {
	dir := makeAssets(t)
	writeFile(t, dir, "dir1/file2.txt.orig", "junk")
	writeFile(t, dir, "node_modules/pkg/index.js", "junk")

	a, _ := mustArchive(t, dir, []string{"**/*.orig", "node_modules"})
	names := a.Names()
	for _, n := range names {
		if strings.Contains(n, "orig") || strings.Contains(n, "node_modules") {
			t.Errorf("excluded entry %s present", n)
		}
	}
	if !slices.Contains(names, "dir1/file2.txt") {
		t.Error("non-excluded sibling missing")
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "aaa")
	writeFile(t, dir, "empty", "") // zero-byte file
	writeFile(t, dir, "sub/b.bin", "\x00\x01\x02")
	if err := os.MkdirAll(filepath.Join(dir, "emptydir"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, raw := mustArchive(t, dir, nil)

	out := t.TempDir()
	if err := Extract(bytes.NewReader(raw), int64(len(raw)), out); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]string{"a.txt": "aaa", "empty": "", "sub/b.bin": "\x00\x01\x02"} {
		got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s: got %q want %q", name, got, want)
		}
	}

	stat, err := os.Stat(filepath.Join(out, "emptydir"))
	if err != nil || !stat.IsDir() {
		t.Errorf("empty directory did not round-trip: %v", err)
	}
}

func TestList(t *testing.T) {
	_, raw := mustArchive(t, makeAssets(t), nil)

	var sb strings.Builder
	if err := List(bytes.NewReader(raw), int64(len(raw)), &sb); err != nil {
		t.Fatal(err)
	}

	want := []string{
		`file1.txt (15/15 bytes compressed/uncompressed)`,
		`onex_run (12/12 bytes compressed/uncompressed)`,
		`dir1\ (0/0 bytes compressed/uncompressed)`,
		`dir1\file2.txt (15/15 bytes compressed/uncompressed)`,
		`dir1\file3.txt (15/15 bytes compressed/uncompressed)`,
	}
	got := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
	if !slices.Equal(got, want) {
		t.Errorf("list output:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestOpenByName(t *testing.T) {
	a, _ := mustArchive(t, makeAssets(t), nil)

	rc, size, err := a.OpenByName("dir1/file2.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	if size != 15 {
		t.Errorf("size %d", size)
	}

	got, err := a.ReadAll("file1.txt")
	if err != nil || string(got) != "file1 contents\n" {
		t.Errorf("ReadAll: %q, %v", got, err)
	}

	if _, _, err := a.OpenByName("nope"); err == nil {
		t.Error("expected an error for a missing entry")
	}
}
