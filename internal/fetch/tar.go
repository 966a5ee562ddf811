package fetch

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
)

// tarDir writes hostDir's contents to w as a tar stream rooted at the
// archive's top level, mirroring the teacher's writeDirToTar.
func tarDir(w io.Writer, hostDir string) error {
	tw := tar.NewWriter(w)
	defer tw.Close()

	return filepath.WalkDir(hostDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(hostDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return writeTarEntry(tw, p, filepath.ToSlash(rel), d)
	})
}

// tarFile writes a single in-memory file named name to w as a one-entry
// tar stream.
func tarFile(w io.Writer, name, contents string) error {
	tw := tar.NewWriter(w)
	defer tw.Close()

	header := &tar.Header{
		Name: name,
		Mode: 0o644,
		Size: int64(len(contents)),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write([]byte(contents))
	return err
}

func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, d os.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	}
	return nil
}
