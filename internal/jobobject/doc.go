// Copyright (c) binyomen
// Licensed under the MIT license

// Package jobobject runs a child process inside a Windows job object and
// waits for the whole process tree, not just the direct child, to exit. The
// loader must not tear down the virtualization root while any descendant
// might still be reading from it.
//
// The job-plus-completion-port protocol follows
// https://devblogs.microsoft.com/oldnewthing/20130405-00/?p=4743
package jobobject
