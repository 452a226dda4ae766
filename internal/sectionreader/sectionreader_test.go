// Copyright (c) binyomen
// Licensed under the MIT license

package sectionreader

import (
	"io"
	"math"
	"strings"
	"testing"
)

func TestBasic(t *testing.T) {
	var abcd io.ReaderAt = strings.NewReader("abcd")
	var r io.ReaderAt

	r = Section(abcd, 0, 4)
	expectRead(t, r, 0, 4, "abcd")
	expectRead(t, r, 0, 5, "abcd EOF")
	expectRead(t, r, 4, 1, " EOF")
	expectRead(t, r, math.MaxInt64, 1, " EOF")

	r = Section(abcd, 1, 4)
	expectRead(t, r, 0, 4, "bcd EOF")
	expectRead(t, r, 0, 2, "bc")
}

func TestOverflow(t *testing.T) {
	var abcd io.ReaderAt = strings.NewReader("abcd")
	var r io.ReaderAt

	r = Section(abcd, 0, math.MaxInt64)
	expectRead(t, r, 0, 4, "abcd")
	expectRead(t, r, 0, 5, "abcd EOF")
	expectRead(t, r, math.MinInt64+2, 1, " EOF")

	r = Section(abcd, 10, math.MaxInt64)
	expectRead(t, r, math.MaxInt64, 1, " EOF")

	r = Section(abcd, math.MaxInt64, math.MaxInt64)
	expectRead(t, r, 0, 1, " EOF")
}

func TestFlatten(t *testing.T) {
	abcd := strings.NewReader("abcdef")

	inner := Section(abcd, 1, 4) // bcde
	r := Section(inner, 1, 2)    // cd
	expectRead(t, r, 0, 4, "cd EOF")
	if r.r != io.ReaderAt(abcd) {
		t.Errorf("expected nested sections to flatten to the original reader, got %T", r.r)
	}

	// a window overrunning its parent must not flatten past it
	r = Section(inner, 1, 5)
	if r.r != io.ReaderAt(inner) {
		t.Errorf("expected overrunning section to keep its parent, got %T", r.r)
	}
}

func expectRead(t *testing.T, r io.ReaderAt, off int64, n int, expect string) {
	t.Helper()
	buf := make([]byte, n)
	gotn, err := r.ReadAt(buf, off)
	gots := string(buf[:gotn])
	if err != nil {
		gots += " " + err.Error()
	}
	if gots != expect {
		t.Errorf("ReadAt(%d bytes at offset %d) -> expected %q got %q", n, off, expect, gots)
	}
}
