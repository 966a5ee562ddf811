package cache

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Clean force-removes path, recursing into directories first. A missing
// path is not an error.
func Clean(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "stat path"), "path", path)
	}

	if info.IsDir() {
		if err := CleanContents(path, nil); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return zerr.With(zerr.Wrap(err, "remove directory"), "path", path)
		}
		return nil
	}

	if err := os.Remove(path); err != nil {
		return zerr.With(zerr.Wrap(err, "remove file"), "path", path)
	}
	return nil
}

// CleanContents force-removes every entry of dir, skipping any name listed
// in exceptions. A missing dir is not an error.
func CleanContents(dir string, exceptions []string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "read directory"), "path", dir)
	}

	skip := make(map[string]bool, len(exceptions))
	for _, name := range exceptions {
		skip[name] = true
	}

	for _, entry := range entries {
		if skip[entry.Name()] {
			continue
		}
		if err := Clean(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LinkTree recreates src's directory tree at dst, hardlinking regular
// files and recreating directories and symlinks, so that the clone shares
// inodes with src instead of duplicating file contents. Used by the
// image-set layer cache to clone a parent rootfs; dependency artifacts are
// staged with [CopyTree], not with this.
func LinkTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())

		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)

		default:
			return os.Link(path, target)
		}
	})
}

// CopyTree overlay-copies src's directory tree onto dst: directories are
// created if missing, and files/symlinks are copied only if dst does not
// already have an entry at that relative path. An existing entry is left
// untouched and, for non-directory conflicts, logged as a warning through
// log unless warnConflicts is false (spec.md §4.5.b's collision handling,
// suppressible via `--hide-conflicts`).
func CopyTree(log *slog.Logger, src, dst string, warnConflicts bool) error {
	if log == nil {
		log = slog.Default()
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		if _, err := os.Lstat(target); err == nil {
			if !d.IsDir() && warnConflicts {
				log.Warn("dependency-copy conflict, skipping", "path", target)
			}
			return nil
		} else if !os.IsNotExist(err) {
			return zerr.With(zerr.Wrap(err, "stat destination"), "path", target)
		}

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())

		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)

		default:
			return copyFile(path, target, d)
		}
	})
}

func copyFile(src, dst string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
