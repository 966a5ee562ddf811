package cache

import (
	"os"

	"golang.org/x/sys/unix"

	"go.trai.ch/zerr"
)

// acquireLockfile opens (creating if necessary) the file at path and takes
// a non-blocking exclusive flock on it. The direct ecosystem equivalent of
// this (a syscall-level advisory lock) is not a dependency any pack repo
// carries, so this is stdlib/golang.org/x/sys only by necessity.
func acquireLockfile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, zerr.Wrap(err, "open lockfile")
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, zerr.Wrap(err, "lock exclusive")
	}
	return file, nil
}
