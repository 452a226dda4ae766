// Copyright (c) binyomen
// Licensed under the MIT license

// Package onexfile reads and writes the composite executable format:
// loader image, then the stored-zip archive, then a 12-byte trailer.
//
//	+------------+---------------+--------------------+------+
//	| loader PE  | archive (zip) | data offset (8 LE) | ONEX |
//	+------------+---------------+--------------------+------+
//
// The loader's PE image is unchanged by the concatenation, so the whole
// thing remains runnable; the OS image loader never looks past the image
// size. The trailer is found from the end of the file, the same way zip
// readers find the end-of-central-directory record.
package onexfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/binyomen/onex/internal/sectionreader"
)

const Magic = "ONEX"

const (
	dataOffsetLength = 8
	trailerLength    = dataOffsetLength + len(Magic)

	// an empty zip is nothing but its 22-byte end record
	minArchiveLength = 22
)

var ErrNotOnex = errors.New("onexfile: not an ONEX file")

// Generate concatenates a loader image and archive bytes into a composite
// file, appending the trailer.
func Generate(loader, archive []byte) []byte {
	out := make([]byte, 0, len(loader)+len(archive)+trailerLength)
	out = append(out, loader...)
	out = append(out, archive...)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(loader)))
	out = append(out, Magic...)
	return out
}

// A File is an opened composite file. It owns its file handle, so it stays
// independent of whatever handle the caller may hold on the same path.
type File struct {
	f          *os.File
	dataOffset int64
	dataLength int64
}

func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	file, err := open(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return file, nil
}

func open(f *os.File) (*File, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size < int64(trailerLength+minArchiveLength) {
		return nil, ErrNotOnex
	}

	trailer := make([]byte, trailerLength)
	if _, err := f.ReadAt(trailer, size-int64(trailerLength)); err != nil {
		return nil, fmt.Errorf("onexfile: reading trailer: %w", err)
	}
	if string(trailer[dataOffsetLength:]) != Magic {
		return nil, ErrNotOnex
	}

	dataOffset := int64(binary.LittleEndian.Uint64(trailer))
	dataLength := size - dataOffset - int64(trailerLength)
	if dataOffset <= 0 || dataLength < minArchiveLength {
		return nil, ErrNotOnex
	}

	return &File{f: f, dataOffset: dataOffset, dataLength: dataLength}, nil
}

// Check reports whether name opens as a composite file.
func Check(name string) bool {
	f, err := Open(name)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (f *File) Close() error { return f.f.Close() }

func (f *File) DataLength() int64 { return f.dataLength }

// Data returns all archive bytes.
func (f *File) Data() ([]byte, error) {
	buf := make([]byte, f.dataLength)
	if _, err := f.f.ReadAt(buf, f.dataOffset); err != nil {
		return nil, fmt.Errorf("onexfile: reading archive: %w", err)
	}
	return buf, nil
}

// DataAccessor returns a cursored stream over the archive region.
func (f *File) DataAccessor() *sectionreader.Stream {
	return sectionreader.NewStream(f.f, f.dataOffset, f.dataLength)
}

// DataSection returns a random-access view of the archive region, suitable
// for zip.NewReader.
func (f *File) DataSection() *sectionreader.ReaderAt {
	return sectionreader.Section(f.f, f.dataOffset, f.dataLength)
}
