package repo

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// copyFile copies src to dst, truncating dst if it exists, and applies
// mode to the result.  The copy is flushed to disk before returning.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src) // #nosec G304 - callers validate paths
	if err != nil {
		return errors.Wrap(err, "copyFile: "+src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode) // #nosec G304 - callers validate paths
	if err != nil {
		return errors.Wrap(err, "copyFile: "+dst)
	}

	_, err = io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return errors.Wrap(err, "copyFile: "+dst)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "copyFile: "+dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "copyFile: "+dst)
	}
	// OpenFile applies mode only on creation.
	if err := os.Chmod(dst, mode); err != nil {
		return errors.Wrap(err, "copyFile: "+dst)
	}
	return DirSync(filepath.Dir(dst))
}
