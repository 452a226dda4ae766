// Copyright (c) binyomen
// Licensed under the MIT license

//go:build windows

package projfs

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/binyomen/onex/internal/bundle"
	"github.com/binyomen/onex/internal/entrycache"
)

// entryCacheSize bounds how many materialized entries stay resident; see
// package entrycache.
const entryCacheSize = 64

// ProjFS hands callbacks no useful user context, so provider state is
// process-wide: a single slot behind a mutex. Only one virtualization
// instance is ever live per loader process.
var active struct {
	mu    sync.Mutex
	state *providerState
}

type providerState struct {
	root     string
	archive  *bundle.Archive
	entries  []entry
	sessions map[enumID]*enumSession
	cache    *entrycache.Cache
	instance virtualizationContext
	ops      nameOps
}

type enumID [16]byte

func guidKey(g *windows.GUID) enumID {
	return *(*enumID)(unsafe.Pointer(g))
}

// A Provider owns one virtualization root backed by an archive.
type Provider struct {
	root string
}

var ErrAlreadyActive = errors.New("projfs: a virtualization instance is already active in this process")

// New creates root on disk, marks it as a virtualization placeholder with a
// fresh instance identifier, and starts virtualizing the archive's tree
// into it.
func New(root string, archive *bundle.Archive) (*Provider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	instanceID, err := windows.GenerateGUID()
	if err != nil {
		removeRoot(root)
		return nil, err
	}
	if err := markDirectoryAsPlaceholder(root, &instanceID); err != nil {
		removeRoot(root)
		return nil, err
	}

	st := &providerState{
		root:     root,
		archive:  archive,
		entries:  entriesFromArchive(archive),
		sessions: make(map[enumID]*enumSession),
		cache:    entrycache.New(entryCacheSize),
		ops:      osNameOps{},
	}

	active.mu.Lock()
	if active.state != nil {
		active.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	active.state = st
	active.mu.Unlock()

	instance, err := startVirtualizing(root, callbacks())
	if err != nil {
		active.mu.Lock()
		active.state = nil
		active.mu.Unlock()
		removeRoot(root)
		return nil, err
	}

	active.mu.Lock()
	st.instance = instance
	active.mu.Unlock()

	return &Provider{root: root}, nil
}

// Close stops virtualization and removes the root tree. Teardown problems
// are logged, never returned; a child that already exited successfully must
// not have its exit overridden by cleanup noise.
func (p *Provider) Close() {
	active.mu.Lock()
	st := active.state
	active.mu.Unlock()
	if st == nil || st.root != p.root {
		return
	}

	// blocks until in-flight callbacks have drained
	stopVirtualizing(st.instance)

	active.mu.Lock()
	active.state = nil
	active.mu.Unlock()

	removeRoot(st.root)
}

func removeRoot(root string) {
	if err := os.RemoveAll(root); err != nil {
		slog.Error("removeVirtRoot", "path", root, "err", err)
	}
}

func entriesFromArchive(a *bundle.Archive) []entry {
	entries := make([]entry, 0, len(a.File))
	for _, f := range a.File {
		name := canonicalName(f.Name)
		if name == "" {
			continue
		}
		entries = append(entries, entry{
			name:    name,
			zipName: f.Name,
			isDir:   strings.HasSuffix(f.Name, "/"),
			size:    int64(f.UncompressedSize64),
		})
	}
	return entries
}

var (
	callbacksOnce sync.Once
	callbacksVal  *callbackTable
)

// callbacks builds the PRJ_CALLBACKS table once; NewCallback registrations
// are permanent for the life of the process. Query-file-name, notification
// and cancel stay unregistered.
func callbacks() *callbackTable {
	callbacksOnce.Do(func() {
		callbacksVal = &callbackTable{
			StartDirectoryEnumerationCallback: syscall.NewCallback(startDirEnumCB),
			EndDirectoryEnumerationCallback:   syscall.NewCallback(endDirEnumCB),
			GetDirectoryEnumerationCallback:   syscall.NewCallback(getDirEnumCB),
			GetPlaceholderInfoCallback:        syscall.NewCallback(getPlaceholderInfoCB),
			GetFileDataCallback:               syscall.NewCallback(getFileDataCB),
		}
	})
	return callbacksVal
}

func basicInfoFor(isDir bool, size int64) fileBasicInfo {
	info := fileBasicInfo{FileSize: size}
	if isDir {
		info.IsDirectory = 1
		info.FileSize = 0
		info.FileAttributes = windows.FILE_ATTRIBUTE_DIRECTORY
	} else {
		// deliberately not read-only, so teardown can delete the tree
		info.FileAttributes = windows.FILE_ATTRIBUTE_NORMAL
	}
	return info
}

func startDirEnumCB(data *callbackData, enumerationID *windows.GUID) uintptr {
	active.mu.Lock()
	defer active.mu.Unlock()
	st := active.state
	if st == nil {
		return eFail
	}

	dir, ok := resolveDir(st.entries, st.ops, windows.UTF16PtrToString(data.FilePathName))
	if !ok {
		return hrFileNotFound
	}

	id := guidKey(enumerationID)
	if _, exists := st.sessions[id]; exists {
		slog.Error("startDirEnumDuplicate", "dir", dir)
		return eFail
	}
	st.sessions[id] = newEnumSession(dir)
	return sOK
}

func endDirEnumCB(data *callbackData, enumerationID *windows.GUID) uintptr {
	active.mu.Lock()
	defer active.mu.Unlock()
	st := active.state
	if st == nil {
		return eFail
	}

	id := guidKey(enumerationID)
	if _, ok := st.sessions[id]; !ok {
		slog.Error("endDirEnumUnknown")
		return eFail
	}
	delete(st.sessions, id)
	return sOK
}

func getDirEnumCB(data *callbackData, enumerationID *windows.GUID, searchExpression *uint16, dirEntryBufferHandle uintptr) uintptr {
	active.mu.Lock()
	defer active.mu.Unlock()
	st := active.state
	if st == nil {
		return eFail
	}

	s, ok := st.sessions[guidKey(enumerationID)]
	if !ok {
		slog.Error("getDirEnumUnknown")
		return eFail
	}

	var filterArg *string
	if searchExpression != nil {
		f := windows.UTF16PtrToString(searchExpression)
		filterArg = &f
	}
	s.updateFilter(filterArg, data.Flags&prjCBDataFlagEnumRestartScan != 0)

	list := childrenMatching(st.entries, st.ops, s.dir, s.filter)
	err := s.emit(list, func(e dirEntry) error {
		info := basicInfoFor(e.isDir, e.size)
		hr := fillDirEntryBuffer(e.name, &info, dirEntryBufferHandle)
		if hr == hrInsufficientBuffer {
			return errBufferFull
		}
		if failed(hr) {
			return hrError("PrjFillDirEntryBuffer", hr)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errBufferFull) {
			return hrInsufficientBuffer
		}
		slog.Error("getDirEnum", "dir", s.dir, "err", err)
		return eFail
	}
	return sOK
}

func getPlaceholderInfoCB(data *callbackData) uintptr {
	active.mu.Lock()
	defer active.mu.Unlock()
	st := active.state
	if st == nil {
		return eFail
	}

	e, ok := resolve(st.entries, st.ops, windows.UTF16PtrToString(data.FilePathName))
	if !ok {
		return hrFileNotFound
	}

	info := placeholderInfo{FileBasicInfo: basicInfoFor(e.isDir, e.size)}
	hr := writePlaceholderInfo(data.NamespaceVirtualizationContext, data.FilePathName, &info)
	if failed(hr) {
		slog.Error("writePlaceholderInfo", "name", e.name, "hresult", hr)
		return hr
	}
	return sOK
}

// getFileDataCB materializes the whole entry regardless of the requested
// byte range; stored zip entries have no efficient random access, and
// bundle entries are small next to RAM.
func getFileDataCB(data *callbackData, byteOffset uint64, length uint32) uintptr {
	active.mu.Lock()
	defer active.mu.Unlock()
	st := active.state
	if st == nil {
		return eFail
	}

	e, ok := resolve(st.entries, st.ops, windows.UTF16PtrToString(data.FilePathName))
	if !ok || e.isDir {
		return hrFileNotFound
	}

	contents, err := st.cache.Get(e.name, func() ([]byte, error) {
		return st.archive.ReadAll(e.zipName)
	})
	if err != nil {
		slog.Error("readEntry", "name", e.name, "err", err)
		return eFail
	}
	if len(contents) == 0 {
		return sOK
	}

	instance := data.NamespaceVirtualizationContext
	buffer := allocateAlignedBuffer(instance, len(contents))
	if buffer == nil {
		return eOutOfMemory
	}
	defer freeAlignedBuffer(buffer)
	copy(unsafe.Slice((*byte)(buffer), len(contents)), contents)

	hr := writeFileData(instance, &data.DataStreamID, buffer, 0, uint32(len(contents)))
	if failed(hr) {
		slog.Error("writeFileData", "name", e.name, "hresult", hr)
		return hr
	}
	return sOK
}
