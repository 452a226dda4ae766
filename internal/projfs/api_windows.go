// Copyright (c) binyomen
// Licensed under the MIT license

//go:build windows

package projfs

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Bindings for ProjectedFSLib.dll. The library speaks HRESULTs, not
// GetLastError, so every wrapper inspects r1 directly.

var (
	modProjectedFSLib = windows.NewLazySystemDLL("ProjectedFSLib.dll")

	procPrjStartVirtualizing          = modProjectedFSLib.NewProc("PrjStartVirtualizing")
	procPrjStopVirtualizing           = modProjectedFSLib.NewProc("PrjStopVirtualizing")
	procPrjMarkDirectoryAsPlaceholder = modProjectedFSLib.NewProc("PrjMarkDirectoryAsPlaceholder")
	procPrjWritePlaceholderInfo       = modProjectedFSLib.NewProc("PrjWritePlaceholderInfo")
	procPrjFillDirEntryBuffer         = modProjectedFSLib.NewProc("PrjFillDirEntryBuffer")
	procPrjAllocateAlignedBuffer      = modProjectedFSLib.NewProc("PrjAllocateAlignedBuffer")
	procPrjFreeAlignedBuffer          = modProjectedFSLib.NewProc("PrjFreeAlignedBuffer")
	procPrjWriteFileData              = modProjectedFSLib.NewProc("PrjWriteFileData")
	procPrjFileNameCompare            = modProjectedFSLib.NewProc("PrjFileNameCompare")
	procPrjFileNameMatch              = modProjectedFSLib.NewProc("PrjFileNameMatch")
	procPrjDoesNameContainWildCards   = modProjectedFSLib.NewProc("PrjDoesNameContainWildCards")
)

type virtualizationContext uintptr

const (
	sOK                  = uintptr(0)
	eFail                = uintptr(0x80004005)
	eOutOfMemory         = uintptr(0x8007000E)
	hrFileNotFound       = uintptr(0x80070002) // HRESULT_FROM_WIN32(ERROR_FILE_NOT_FOUND)
	hrInsufficientBuffer = uintptr(0x8007007A) // HRESULT_FROM_WIN32(ERROR_INSUFFICIENT_BUFFER)
)

func failed(hr uintptr) bool { return hr&0x80000000 != 0 }

func hrError(op string, hr uintptr) error {
	return fmt.Errorf("projfs: %s: %w", op, windows.Errno(hr))
}

const prjCBDataFlagEnumRestartScan = 0x1

// callbackData mirrors PRJ_CALLBACK_DATA.
type callbackData struct {
	Size                           uint32
	Flags                          uint32
	NamespaceVirtualizationContext virtualizationContext
	CommandID                      int32
	FileID                         windows.GUID
	DataStreamID                   windows.GUID
	FilePathName                   *uint16
	VersionInfo                    *placeholderVersionInfo
	TriggeringProcessID            uint32
	TriggeringProcessImageFileName *uint16
	InstanceContext                unsafe.Pointer
}

// callbackTable mirrors PRJ_CALLBACKS; entries are syscall.NewCallback
// values.
type callbackTable struct {
	StartDirectoryEnumerationCallback uintptr
	EndDirectoryEnumerationCallback   uintptr
	GetDirectoryEnumerationCallback   uintptr
	GetPlaceholderInfoCallback        uintptr
	GetFileDataCallback               uintptr
	QueryFileNameCallback             uintptr
	NotificationCallback              uintptr
	CancelCommandCallback             uintptr
}

// fileBasicInfo mirrors PRJ_FILE_BASIC_INFO.
type fileBasicInfo struct {
	IsDirectory    uint8
	_              [7]byte
	FileSize       int64
	CreationTime   int64
	LastAccessTime int64
	LastWriteTime  int64
	ChangeTime     int64
	FileAttributes uint32
}

type placeholderVersionInfo struct {
	ProviderID [128]byte
	ContentID  [128]byte
}

// placeholderInfo mirrors PRJ_PLACEHOLDER_INFO.
type placeholderInfo struct {
	FileBasicInfo       fileBasicInfo
	EaInformation       struct{ EaBufferSize, OffsetToFirstEa uint32 }
	SecurityInformation struct{ SecurityBufferSize, OffsetToSecurityDescriptor uint32 }
	StreamsInformation  struct{ StreamsInfoBufferSize, OffsetToFirstStreamInfo uint32 }
	VersionInfo         placeholderVersionInfo
	VariableData        [1]byte
}

func markDirectoryAsPlaceholder(root string, instanceID *windows.GUID) error {
	rootp, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return err
	}
	hr, _, _ := procPrjMarkDirectoryAsPlaceholder.Call(
		uintptr(unsafe.Pointer(rootp)),
		0, // targetPathName
		0, // versionInfo
		uintptr(unsafe.Pointer(instanceID)))
	if failed(hr) {
		return hrError("PrjMarkDirectoryAsPlaceholder", hr)
	}
	return nil
}

func startVirtualizing(root string, callbacks *callbackTable) (virtualizationContext, error) {
	rootp, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return 0, err
	}
	var instance virtualizationContext
	hr, _, _ := procPrjStartVirtualizing.Call(
		uintptr(unsafe.Pointer(rootp)),
		uintptr(unsafe.Pointer(callbacks)),
		0, // instanceContext: state is process-wide instead
		0, // options
		uintptr(unsafe.Pointer(&instance)))
	if failed(hr) {
		return 0, hrError("PrjStartVirtualizing", hr)
	}
	return instance, nil
}

func stopVirtualizing(instance virtualizationContext) {
	procPrjStopVirtualizing.Call(uintptr(instance))
}

func writePlaceholderInfo(instance virtualizationContext, destPathName *uint16, info *placeholderInfo) uintptr {
	hr, _, _ := procPrjWritePlaceholderInfo.Call(
		uintptr(instance),
		uintptr(unsafe.Pointer(destPathName)),
		uintptr(unsafe.Pointer(info)),
		unsafe.Sizeof(*info))
	return hr
}

func fillDirEntryBuffer(name string, info *fileBasicInfo, bufferHandle uintptr) uintptr {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return eFail
	}
	hr, _, _ := procPrjFillDirEntryBuffer.Call(
		uintptr(unsafe.Pointer(namep)),
		uintptr(unsafe.Pointer(info)),
		bufferHandle)
	return hr
}

func allocateAlignedBuffer(instance virtualizationContext, size int) unsafe.Pointer {
	p, _, _ := procPrjAllocateAlignedBuffer.Call(uintptr(instance), uintptr(size))
	return unsafe.Pointer(p)
}

func freeAlignedBuffer(buffer unsafe.Pointer) {
	procPrjFreeAlignedBuffer.Call(uintptr(buffer))
}

func writeFileData(instance virtualizationContext, dataStreamID *windows.GUID, buffer unsafe.Pointer, byteOffset uint64, length uint32) uintptr {
	hr, _, _ := procPrjWriteFileData.Call(
		uintptr(instance),
		uintptr(unsafe.Pointer(dataStreamID)),
		uintptr(buffer),
		uintptr(byteOffset),
		uintptr(length))
	return hr
}
