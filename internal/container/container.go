// Package container defines the port the stage executor uses to run
// recipe scripts inside an isolated filesystem root, and the bind-mount
// type that composes a recipe's mount table (spec.md §4.5d).
//
// The port is backed by a Linux-namespace adapter
// ([go.chariot.build/chariot/internal/container/netns]) rather than a
// container daemon: Chariot's "container" is a chroot plus a handful of
// bind mounts into a hardlink-cloned rootfs, not an OCI image running
// under containerd.
package container

import (
	"context"
	"io"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Mount is a bind mount composing one entry of a recipe's container mount
// table. It is the same shape as an OCI runtime-spec mount so the
// adapter can reuse [specs.Mount]'s Options convention (e.g. "ro", "bind").
type Mount = specs.Mount

// ExecResult is the outcome of running a command inside a [Container].
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Harness creates containers rooted at a given rootfs with a given mount
// table.
type Harness interface {
	// NewContainer prepares rootfs with mounts bound into place and
	// returns a handle for running commands against it. The mounts are
	// torn down when the returned [Container] is destroyed.
	NewContainer(ctx context.Context, rootfs string, mounts []Mount) (Container, error)
}

// Container is a single recipe pipeline's isolated filesystem root, with
// its dependency and scratch mounts already composed.
type Container interface {
	// Exec runs command via "shell -c command" inside the container, with
	// env as its entire environment and workdir as the working directory.
	// A non-zero exit code is not an error; the caller decides.
	Exec(ctx context.Context, shell, command string, env []string, workdir string) (*ExecResult, error)

	// CopyTo extracts the tar stream r into destDir inside the container.
	CopyTo(ctx context.Context, r io.Reader, destDir string) error

	// CopyFrom archives path inside the container as a tar stream written
	// to w.
	CopyFrom(ctx context.Context, w io.Writer, path string) error

	// Destroy unmounts the container's mount table. Idempotent.
	Destroy(ctx context.Context)
}
