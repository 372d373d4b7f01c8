package freesurfer

import (
	"io"
	"os"
	"path/filepath"

	"surfparcel/internal/errors"
)

// CopyToSubjectDir copies src into subjectsDir/subject/folder. The copy is
// named name, or keeps the base name of src when name is empty. An empty src
// is skipped, and an existing destination is left untouched. The destination
// path is returned.
func CopyToSubjectDir(subjectsDir, subject, folder, src, name string) (string, error) {
	if src == "" {
		return "", nil
	}
	if name == "" {
		name = filepath.Base(src)
	}

	dir := filepath.Join(subjectsDir, subject, folder)
	dst := filepath.Join(dir, name)
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	return dst, copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "copy")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "copy")
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return errors.Wrap(out.Close(), "copy")
}
