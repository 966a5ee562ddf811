// Package netns implements [container.Harness] against plain Linux
// namespaces and bind mounts instead of a container daemon: "starting a
// container" is bind-mounting a recipe's dependency directories into a
// hardlink-cloned rootfs, then running commands in it chrooted with fresh
// mount/PID/UTS namespaces.
package netns

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"go.chariot.build/chariot/internal/container"
	"go.trai.ch/zerr"
)

// Harness creates [Container] handles backed by bind mounts and chroot.
type Harness struct {
	log *slog.Logger
}

// New creates a [Harness]. A nil logger falls back to [slog.Default].
func New(log *slog.Logger) *Harness {
	if log == nil {
		log = slog.Default()
	}
	return &Harness{log: log}
}

var containerSeq uint64

// NewContainer bind-mounts each of mounts into rootfs and returns a
// handle for running commands against it. If a later mount fails, the
// mounts already made are unwound before returning the error.
func (h *Harness) NewContainer(ctx context.Context, rootfs string, mounts []container.Mount) (container.Container, error) {
	id := fmt.Sprintf("chariot-%d", atomic.AddUint64(&containerSeq, 1))
	c := &Container{id: id, rootfs: rootfs, log: h.log}

	for _, m := range mounts {
		if err := c.bindMount(m); err != nil {
			c.Destroy(ctx)
			return nil, err
		}
	}

	h.log.Debug("container prepared", "id", id, "rootfs", rootfs, "mounts", len(mounts))
	return c, nil
}

// InstallPackage runs the system package manager inside rootfs to install
// pkg, satisfying [go.chariot.build/chariot/internal/layer.Installer].
// spec.md §4.4 names a package manager only abstractly ("install package P
// into rootfs R"), with `pacman` as its illustrative example; this module
// bootstraps a Debian rootfs (`internal/wiring/bootstrap.go`, following
// `original_source/src/rootfs.rs`), so the concrete manager here is
// `apt-get`, invoked chrooted with no additional mounts since layer
// construction runs before a recipe's own dependency mounts exist.
func (h *Harness) InstallPackage(ctx context.Context, rootfs, pkg string) error {
	c := &Container{id: "layer-install", rootfs: rootfs, log: h.log}
	cmd := fmt.Sprintf(
		"DEBIAN_FRONTEND=noninteractive apt-get update -qq && DEBIAN_FRONTEND=noninteractive apt-get install -y --no-install-recommends %s",
		shellQuote(pkg),
	)
	result, err := c.Exec(ctx, "/bin/sh", cmd, nil, "/")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return zerr.With(zerr.Wrap(container.ErrExecFailed, result.Stderr), "package", pkg)
	}
	return nil
}

// Container is a chroot-and-namespace-backed [container.Container].
type Container struct {
	id       string
	rootfs   string
	log      *slog.Logger
	mounted  []string // mount targets, in mount order, for unwind on Destroy
}

// bindMount binds m's host source onto rootfs+destination, creating the
// mount point and applying MS_RDONLY when the mount's options request a
// read-only bind (e.g. the read-only patches mount of spec.md §4.5e).
func (c *Container) bindMount(m container.Mount) error {
	target := filepath.Join(c.rootfs, m.Destination)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return zerr.Wrap(container.ErrContainer, err.Error())
	}

	if err := unix.Mount(m.Source, target, "", unix.MS_BIND, ""); err != nil {
		return zerr.With(zerr.Wrap(container.ErrContainer, err.Error()), "mount", m.Destination)
	}
	c.mounted = append(c.mounted, target)

	if hasOption(m.Options, "ro") {
		if err := unix.Mount("", target, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY, ""); err != nil {
			return zerr.With(zerr.Wrap(container.ErrContainer, err.Error()), "mount", m.Destination)
		}
	}

	return nil
}

func hasOption(opts []string, want string) bool {
	for _, o := range opts {
		if o == want {
			return true
		}
	}
	return false
}

// Exec runs "shell -c command" chrooted into the container's rootfs,
// inside fresh mount, PID, and UTS namespaces.
func (c *Container) Exec(ctx context.Context, shell, command string, env []string, workdir string) (*container.ExecResult, error) {
	return c.run(ctx, nil, env, workdir, shell, "-c", command)
}

// CopyTo extracts r into destDir inside the container via "tar xf - -C
// destDir", mirroring the teacher's tar-stream copy convention.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	return c.mustRun(ctx, "tar extract", r, nil, "tar", "xf", "-", "-C", destDir)
}

// CopyFrom archives path inside the container as a tar stream written to
// w, via "tar cf - -C <dir> <base>".
func (c *Container) CopyFrom(ctx context.Context, w io.Writer, path string) error {
	return c.mustRunCapture(ctx, "tar archive", w, "tar", "cf", "-", "-C", filepath.Dir(path), filepath.Base(path))
}

// Destroy unmounts every bind mount made for this container, in reverse
// order. It is safe to call more than once.
func (c *Container) Destroy(ctx context.Context) {
	for i := len(c.mounted) - 1; i >= 0; i-- {
		target := c.mounted[i]
		if err := unix.Unmount(target, unix.MNT_DETACH); err != nil && !os.IsNotExist(err) {
			c.log.Warn("failed to unmount container path", "id", c.id, "target", target, "error", err)
		}
	}
	c.mounted = nil
}

func (c *Container) mustRun(ctx context.Context, desc string, stdin io.Reader, stdout io.Writer, args ...string) error {
	result, err := c.run(ctx, stdin, nil, "", args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return zerr.With(zerr.Wrap(container.ErrExecFailed, desc), "exit_code", result.ExitCode, "stderr", result.Stderr)
	}
	return nil
}

func (c *Container) mustRunCapture(ctx context.Context, desc string, w io.Writer, args ...string) error {
	result, err := c.run(ctx, nil, nil, "", args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return zerr.With(zerr.Wrap(container.ErrExecFailed, desc), "exit_code", result.ExitCode, "stderr", result.Stderr)
	}
	if w != nil {
		if _, err := w.Write([]byte(result.Stdout)); err != nil {
			return zerr.Wrap(container.ErrContainer, err.Error())
		}
	}
	return nil
}

// run chroots into the container's rootfs and executes args with fresh
// mount, PID, and UTS namespaces, capturing stdout/stderr.
func (c *Container) run(ctx context.Context, stdin io.Reader, env []string, workdir string, args ...string) (*container.ExecResult, error) {
	if workdir == "" {
		workdir = "/"
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = workdir
	cmd.Env = env
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Chroot:     c.rootfs,
		Cloneflags: syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWUTS,
	}

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, zerr.With(zerr.Wrap(container.ErrContainer, err.Error()), "command", args[0])
		}
	}

	return &container.ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// shellQuote wraps s in single quotes for safe inclusion in a shell -c
// command, escaping any embedded single quote.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
