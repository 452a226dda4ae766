// Copyright (c) binyomen
// Licensed under the MIT license

//go:build !windows

package main

import "errors"

func cmdMount([]string) error {
	return errors.New("mount needs the Windows Projected File System; use extract instead")
}
