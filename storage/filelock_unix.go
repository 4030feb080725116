//go:build !windows

package storage

import (
	"os"
	"syscall"
)

// tryLock takes an exclusive flock(2) without blocking.
func tryLock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
