// Copyright (c) binyomen
// Licensed under the MIT license

package sectionreader

import (
	"errors"
	"io"
)

var ErrInvalidSeek = errors.New("sectionreader: seek before start of section")

// Stream presents the window [off, off+n) of an underlying io.ReadSeeker as
// a fresh stream whose logical cursor starts at zero.
//
// The underlying source is re-seeked to off+cursor before every read, so
// several Streams may share one file as long as callers serialize access.
type Stream struct {
	r   io.ReadSeeker
	off int64
	n   int64
	cur int64
}

var _ io.ReadSeeker = (*Stream)(nil)

func NewStream(r io.ReadSeeker, off, n int64) *Stream {
	return &Stream{r: r, off: off, n: n}
}

func (s *Stream) Size() int64 { return s.n }

// Seek moves the logical cursor. Positions past the end of the window clamp
// to the end; a negative target is an error.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekEnd:
		target = s.n + offset
	case io.SeekCurrent:
		target = s.cur + offset
	default:
		return 0, errors.New("sectionreader: invalid whence")
	}

	if target < 0 {
		return 0, ErrInvalidSeek
	}
	if target > s.n {
		target = s.n
	}
	s.cur = target

	if _, err := s.r.Seek(s.off+s.cur, io.SeekStart); err != nil {
		return 0, err
	}
	return s.cur, nil
}

func (s *Stream) Read(p []byte) (int, error) {
	if s.cur >= s.n {
		return 0, io.EOF
	}
	if rest := s.n - s.cur; int64(len(p)) > rest {
		p = p[:rest]
	}

	if _, err := s.r.Seek(s.off+s.cur, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := s.r.Read(p)
	s.cur += int64(n)
	return n, err
}
