// Copyright (c) binyomen
// Licensed under the MIT license

//go:build windows

package jobobject

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	jobObjectAssociateCompletionPortInformation = 7
	jobObjectMsgActiveProcessZero               = 4
)

type associateCompletionPort struct {
	CompletionKey  uintptr
	CompletionPort windows.Handle
}

// A Job owns the job object, the completion port watching it, and the child
// process handle.
type Job struct {
	job     windows.Handle
	port    windows.Handle
	process windows.Handle
}

// Launch starts exe with args inside a fresh job object. The child is
// created suspended, assigned to the job, then resumed, so descendants can
// never escape the job. Handles are inherited and the environment block is
// Unicode; the working directory is the caller's.
func Launch(exe string, args []string) (*Job, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("jobobject: creating job: %w", err)
	}

	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 1)
	if err != nil {
		windows.CloseHandle(job)
		return nil, fmt.Errorf("jobobject: creating completion port: %w", err)
	}

	assoc := associateCompletionPort{
		CompletionKey:  uintptr(job),
		CompletionPort: port,
	}
	_, err = windows.SetInformationJobObject(job,
		jobObjectAssociateCompletionPortInformation,
		uintptr(unsafe.Pointer(&assoc)),
		uint32(unsafe.Sizeof(assoc)))
	if err != nil {
		windows.CloseHandle(port)
		windows.CloseHandle(job)
		return nil, fmt.Errorf("jobobject: associating completion port: %w", err)
	}

	process, thread, err := createSuspended(exe, args)
	if err != nil {
		windows.CloseHandle(port)
		windows.CloseHandle(job)
		return nil, err
	}

	if err := windows.AssignProcessToJobObject(job, process); err != nil {
		windows.TerminateProcess(process, 1)
		windows.CloseHandle(thread)
		windows.CloseHandle(process)
		windows.CloseHandle(port)
		windows.CloseHandle(job)
		return nil, fmt.Errorf("jobobject: assigning process to job: %w", err)
	}

	if _, err := windows.ResumeThread(thread); err != nil {
		windows.TerminateProcess(process, 1)
		windows.CloseHandle(thread)
		windows.CloseHandle(process)
		windows.CloseHandle(port)
		windows.CloseHandle(job)
		return nil, fmt.Errorf("jobobject: resuming initial thread: %w", err)
	}
	windows.CloseHandle(thread)

	return &Job{job: job, port: port, process: process}, nil
}

func createSuspended(exe string, args []string) (process, thread windows.Handle, err error) {
	cmdline, err := windows.UTF16PtrFromString(
		windows.ComposeCommandLine(append([]string{exe}, args...)))
	if err != nil {
		return 0, 0, fmt.Errorf("jobobject: bad command line: %w", err)
	}

	var si windows.StartupInfo
	si.Cb = uint32(unsafe.Sizeof(si))
	var pi windows.ProcessInformation

	err = windows.CreateProcess(
		nil,     // applicationName: taken from the command line
		cmdline,
		nil,     // processAttributes
		nil,     // threadAttributes
		true,    // inheritHandles
		windows.CREATE_SUSPENDED|windows.CREATE_UNICODE_ENVIRONMENT,
		nil,     // environment: inherited
		nil,     // currentDirectory: inherited
		&si,
		&pi)
	if err != nil {
		return 0, 0, fmt.Errorf("jobobject: creating process: %w", err)
	}
	return pi.Process, pi.Thread, nil
}

// Wait blocks until every process in the job has exited, then returns the
// direct child's exit code.
func (j *Job) Wait() (uint32, error) {
	for {
		var code uint32
		var key uintptr
		var overlapped *windows.Overlapped
		err := windows.GetQueuedCompletionStatus(j.port, &code, &key, &overlapped, windows.INFINITE)
		if err != nil {
			return 0, fmt.Errorf("jobobject: waiting on completion port: %w", err)
		}
		if key == uintptr(j.job) && code == jobObjectMsgActiveProcessZero {
			break
		}
	}

	var exitCode uint32
	if err := windows.GetExitCodeProcess(j.process, &exitCode); err != nil {
		return 0, fmt.Errorf("jobobject: reading exit code: %w", err)
	}
	return exitCode, nil
}

// Close releases the job, port and process handles.
func (j *Job) Close() {
	windows.CloseHandle(j.job)
	windows.CloseHandle(j.port)
	windows.CloseHandle(j.process)
}
