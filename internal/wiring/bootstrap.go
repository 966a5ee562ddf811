package wiring

import (
	"context"
	"fmt"
	"os/exec"

	"go.trai.ch/zerr"
)

// rootfsVersion pins the base distribution rootfs tarball (spec.md §4.4
// treats the exact version/package manifest as an opaque external input;
// the reference value below is grounded in original_source/src/rootfs.rs's
// CURRENT_VERSION).
const rootfsVersion = "20250401T023134Z"

// rootfsArchiveURL is the reference tarball location, grounded in
// original_source/src/rootfs.rs's wget invocation.
const rootfsArchiveURL = "https://github.com/mintsuki/debian-rootfs/releases/download/%s/debian-rootfs-amd64.tar.xz"

// bootstrapPackages is the fixed package set installed into the base
// rootfs once it is extracted (spec.md §4.4's "locale + bison/diffutils/
// gettext/libtool/m4/make/patch/perl/python/texinfo/.../git/curl in the
// reference"), taken from original_source/src/rootfs.rs's DEFAULT_PACKAGES.
var bootstrapPackages = []string{
	"autopoint", "bash", "fakeroot", "file", "bzip2", "findutils", "gawk",
	"bison", "curl", "diffutils", "flex", "gettext", "grep", "gzip",
	"libarchive13", "m4", "make", "patch", "perl", "python3", "sed", "tar",
	"texinfo", "which", "xz-utils", "zlib1g", "zstd", "git", "wget",
}

// bootstrapExtract downloads and unpacks the pinned base rootfs tarball
// into dest. It runs on the host, not inside a container — there is no
// rootfs to chroot into until this has run once, so it shells out to
// `wget`/`tar` directly rather than through [container.Harness].
func bootstrapExtract(ctx context.Context, dest string) error {
	url := fmt.Sprintf(rootfsArchiveURL, rootfsVersion)

	wget := exec.CommandContext(ctx, "wget", "-qO-", url)
	tar := exec.CommandContext(ctx, "tar", "-xJ", "--strip-components", "1", "-C", dest)

	pipe, err := wget.StdoutPipe()
	if err != nil {
		return zerr.Wrap(err, "pipe rootfs download into extraction")
	}
	tar.Stdin = pipe

	if err := tar.Start(); err != nil {
		return zerr.Wrap(err, "start rootfs extraction")
	}
	if err := wget.Run(); err != nil {
		return zerr.Wrap(err, "download rootfs archive")
	}
	if err := tar.Wait(); err != nil {
		return zerr.Wrap(err, "extract rootfs archive")
	}
	return nil
}
