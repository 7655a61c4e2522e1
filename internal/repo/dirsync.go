package repo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// validateRecordPath validates an archive-relative path taken from a
// module record before it is joined to a root directory.  It rejects
// parent directory references and absolute paths.
func validateRecordPath(path string) error {
	cleanPath := filepath.Clean(filepath.FromSlash(path))

	if strings.Contains(cleanPath, "..") {
		return errors.New("unsafe record path (contains directory traversal): " + path)
	}
	if filepath.IsAbs(cleanPath) {
		return errors.New("unsafe record path (absolute path not allowed): " + path)
	}

	return nil
}

// DirSync calls fsync(2) on the directory to save changes in the directory.
//
// This should be called after os.Create, os.Rename and so on.
func DirSync(d string) error {
	f, err := os.OpenFile(d, os.O_RDONLY, 0o755) // #nosec G304,G302 - directory paths come from validated config
	if err != nil {
		return err
	}
	err = f.Sync()
	if err != nil {
		return err
	}
	return f.Close()
}
