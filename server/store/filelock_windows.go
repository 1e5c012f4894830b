//go:build windows

package store

import (
	"os"

	"golang.org/x/sys/windows"
)

const maxUint32 = ^uint32(0)

func tryLockFile(file *os.File, exclusive bool) bool {
	flags := uint32(windows.LOCKFILE_FAIL_IMMEDIATELY)
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(file.Fd()), flags, 0, maxUint32, maxUint32, ol) == nil
}

func unlockFile(file *os.File) {
	ol := new(windows.Overlapped)
	_ = windows.UnlockFileEx(windows.Handle(file.Fd()), 0, maxUint32, maxUint32, ol)
}
