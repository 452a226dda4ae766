// Copyright (c) binyomen
// Licensed under the MIT license

//go:build windows

package projfs

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// osNameOps delegates comparison and wildcard matching to ProjFS itself, so
// the provider orders and filters names exactly the way the filesystem
// would.
type osNameOps struct{}

func (osNameOps) Compare(a, b string) int {
	ap, err := windows.UTF16PtrFromString(a)
	if err != nil {
		return fallbackCompare(a, b)
	}
	bp, err := windows.UTF16PtrFromString(b)
	if err != nil {
		return fallbackCompare(a, b)
	}
	r, _, _ := procPrjFileNameCompare.Call(
		uintptr(unsafe.Pointer(ap)),
		uintptr(unsafe.Pointer(bp)))
	return int(int32(uint32(r)))
}

func (osNameOps) IsWildcard(pattern string) bool {
	p, err := windows.UTF16PtrFromString(pattern)
	if err != nil {
		return false
	}
	r, _, _ := procPrjDoesNameContainWildCards.Call(uintptr(unsafe.Pointer(p)))
	return byte(r) != 0
}

func (osNameOps) Match(name, pattern string) bool {
	np, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return false
	}
	pp, err := windows.UTF16PtrFromString(pattern)
	if err != nil {
		return false
	}
	r, _, _ := procPrjFileNameMatch.Call(
		uintptr(unsafe.Pointer(np)),
		uintptr(unsafe.Pointer(pp)))
	return byte(r) != 0
}

// fallbackCompare only runs for names with interior NULs, which no valid
// archive or OS path has.
func fallbackCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
