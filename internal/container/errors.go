package container

import "go.trai.ch/zerr"

var (
	// ErrContainer is the sentinel wrapped around every harness-level
	// failure (mount, chroot, exec setup) that is not a nonzero exit code.
	ErrContainer = zerr.New("container error")

	// ErrExecFailed is returned by helpers that treat a nonzero exit code
	// as a failure (e.g. mandatory setup commands like tar extraction),
	// as opposed to [Container.Exec], which always returns the exit code
	// to the caller.
	ErrExecFailed = zerr.New("command failed")
)
