// Copyright (c) binyomen
// Licensed under the MIT license

package projfs

import (
	"errors"
	"slices"
)

// errBufferFull is returned by a fill function when the OS-supplied entry
// buffer cannot take another record.
var errBufferFull = errors.New("projfs: dir entry buffer full")

// An enumSession is one consumer's walk of one directory, keyed by the
// OS-supplied enumeration GUID. The filter is three-valued: never set, set
// to no expression, or set to an expression.
type enumSession struct {
	dir       string
	filterSet bool
	filter    *string
	cursor    int
}

func newEnumSession(dir string) *enumSession {
	return &enumSession{dir: dir}
}

// updateFilter latches the first search expression a get callback supplies;
// after that only a restart-scan may replace it, which also rewinds the
// cursor.
func (s *enumSession) updateFilter(arg *string, restart bool) {
	switch {
	case !s.filterSet:
		s.filterSet = true
		s.filter = arg
	case restart:
		s.cursor = 0
		s.filter = arg
	}
}

type dirEntry struct {
	name  string // final component only
	isDir bool
	size  int64
}

// childrenMatching returns the direct children of dir that match filter,
// sorted with the OS comparator; the sort is stable so ties keep archive
// order.
func childrenMatching(entries []entry, ops nameOps, dir string, filter *string) []dirEntry {
	var list []dirEntry
	for i := range entries {
		base, ok := directChild(ops, dir, entries[i].name)
		if !ok {
			continue
		}
		if !matches(ops, base, filter) {
			continue
		}
		list = append(list, dirEntry{name: base, isDir: entries[i].isDir, size: entries[i].size})
	}
	slices.SortStableFunc(list, func(a, b dirEntry) int { return ops.Compare(a.name, b.name) })
	return list
}

func matches(ops nameOps, name string, filter *string) bool {
	switch {
	case filter == nil:
		return true
	case ops.IsWildcard(*filter):
		return ops.Match(name, *filter)
	default:
		return ops.Compare(name, *filter) == 0
	}
}

// emit feeds entries from the cursor onward into fill until the list is
// exhausted or the buffer fills. A full buffer after at least one placed
// entry is success (the consumer comes back for the rest); a full buffer
// before any entry fit is the caller's problem to report.
func (s *enumSession) emit(list []dirEntry, fill func(dirEntry) error) error {
	placed := false
	for s.cursor < len(list) {
		if err := fill(list[s.cursor]); err != nil {
			if errors.Is(err, errBufferFull) && placed {
				return nil
			}
			return err
		}
		placed = true
		s.cursor++
	}
	return nil
}
