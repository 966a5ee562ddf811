// Package fetch implements the namespace-specific source acquisition
// commands of spec.md §4.5e: tarball download + BLAKE2 verification +
// extraction, shallow git clone + pinned-commit checkout, and local
// directory copy, plus the optional patch step shared by all three.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/crypto/blake2b"

	"go.chariot.build/chariot/internal/container"
	"go.trai.ch/zerr"
)

var (
	// ErrChecksumMismatch is returned by [Fetcher.FetchTarball] when the
	// in-container `b2sum --check` of the downloaded archive fails.
	ErrChecksumMismatch = zerr.New("checksum mismatch")

	// ErrLocalSourceMissing is returned when a `local` source recipe's
	// URL does not name an existing host path.
	ErrLocalSourceMissing = zerr.New("local source path not found")
)

// Fetcher runs the fetch stage for one source recipe inside an already
// mounted [container.Container] whose working directory is
// `/chariot/source`.
type Fetcher struct {
	ctr container.Container
}

// New creates a [Fetcher] that runs its commands against ctr.
func New(ctr container.Container) *Fetcher {
	return &Fetcher{ctr: ctr}
}

// FetchTarball downloads url to `/chariot/source/archive` inside the
// container, verifies it against expectedB2Sum with `b2sum --check`, and
// extracts it into `/chariot/source/src` stripping the archive's leading
// path component, per spec.md §4.5e.
func (f *Fetcher) FetchTarball(ctx context.Context, url, expectedB2Sum string, xz bool) error {
	if err := f.mustExec(ctx, "wget",
		fmt.Sprintf("wget --no-hsts -qO /chariot/source/archive %s", shellQuote(url))); err != nil {
		return err
	}

	b2sumsLine := fmt.Sprintf("%s  /chariot/source/archive", expectedB2Sum)
	if err := f.writeFile(ctx, "/chariot/source/b2sums.txt", b2sumsLine+"\n"); err != nil {
		return err
	}
	if err := f.mustExec(ctx, "b2sum", "b2sum --check /chariot/source/b2sums.txt"); err != nil {
		return zerr.Wrap(ErrChecksumMismatch, err.Error())
	}

	tarFlag := "--gzip"
	if xz {
		tarFlag = "--xz"
	}
	extract := fmt.Sprintf(
		"tar --no-same-owner --no-same-permissions --strip-components 1 -x %s -C /chariot/source/src -f /chariot/source/archive",
		tarFlag,
	)
	return f.mustExec(ctx, "tar extract", extract)
}

// FetchGit shallow-clones url into `/chariot/source/src`, then fetches
// and checks out commit by explicit hash — always by hash after fetch,
// so both a branch name and a raw commit work as commit (spec.md §4.5e).
func (f *Fetcher) FetchGit(ctx context.Context, url, commit string) error {
	if err := f.mustExec(ctx, "git clone",
		fmt.Sprintf("git clone --depth=1 %s /chariot/source/src", shellQuote(url))); err != nil {
		return err
	}
	if err := f.mustExec(ctx, "git fetch",
		fmt.Sprintf("git -C /chariot/source/src fetch --depth=1 origin %s", shellQuote(commit))); err != nil {
		return err
	}
	return f.mustExec(ctx, "git checkout",
		fmt.Sprintf("git -C /chariot/source/src checkout %s", shellQuote(commit)))
}

// FetchLocal copies the host-side directory at localPath verbatim into
// the container's `/chariot/source/src`, via the container's [CopyTo],
// tarring localPath on the host side first.
func (f *Fetcher) FetchLocal(ctx context.Context, localPath string) error {
	if info, err := os.Stat(localPath); err != nil || !info.IsDir() {
		return zerr.With(ErrLocalSourceMissing, "path", localPath)
	}

	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- tarDir(pw, localPath)
		pw.Close()
	}()

	if err := f.ctr.CopyTo(ctx, pr, "/chariot/source/src"); err != nil {
		return err
	}
	return <-errc
}

// ApplyPatch runs `patch -p1 -i /chariot/patches/<patchfile>` with
// `/chariot/source` as the working directory, against a patch file the
// caller has already bind-mounted read-only at `/chariot/patches`
// (spec.md §4.5e).
func (f *Fetcher) ApplyPatch(ctx context.Context, patchFile string) error {
	cmd := fmt.Sprintf("patch -p1 -i /chariot/patches/%s", shellQuote(patchFile))
	return f.mustExec(ctx, "patch", cmd)
}

func (f *Fetcher) mustExec(ctx context.Context, desc, cmd string) error {
	result, err := f.ctr.Exec(ctx, "/bin/sh", cmd, nil, "/chariot/source")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return zerr.With(zerr.Wrap(container.ErrExecFailed, desc), "exit_code", result.ExitCode, "stderr", result.Stderr)
	}
	return nil
}

// writeFile creates a single file at path (an absolute in-container path)
// with the given contents, by tarring it on the host side and extracting
// it through the container's [container.Container.CopyTo] — the same
// mechanism the teacher uses for every host-to-container transfer.
func (f *Fetcher) writeFile(ctx context.Context, p, contents string) error {
	dir := path.Dir(p)
	name := path.Base(p)

	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- tarFile(pw, name, contents)
		pw.Close()
	}()

	if err := f.ctr.CopyTo(ctx, pr, dir); err != nil {
		return err
	}
	return <-errc
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// HostChecksum computes the BLAKE2b-256 digest of r, hex-encoded the same
// way a source recipe's `b2sum` field is written. Used by `--verify` to
// check a host-cached archive (`cache.Cache.SourceArchive`) against its
// recipe's declared sum without a container round-trip; the container's
// own `b2sum --check` during `FetchTarball` remains the authoritative
// check on the path that actually builds something.
func HostChecksum(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", zerr.Wrap(err, "create blake2b hasher")
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", zerr.Wrap(err, "hash archive")
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
