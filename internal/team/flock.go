package team

import (
	"fmt"
	"os"
	"syscall"
)

// fileLock provides cross-process mutual exclusion using flock(2). It keeps
// a snapshot read in one process from observing a half-finished rename in
// another process sharing the same persistence directory.
type fileLock struct {
	path string
	file *os.File
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

// lock acquires an exclusive lock, blocking until available.
// The lock file is created if it does not exist.
func (fl *fileLock) lock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	fl.file = f

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		fl.file = nil
		return fmt.Errorf("flock: %w", err)
	}
	return nil
}

// unlock releases the lock and closes the lock file.
func (fl *fileLock) unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	return err
}
