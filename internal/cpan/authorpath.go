package cpan

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// AuthorPath returns the nested directory path for an author identifier,
// relative to authors/id: the first character, then the first two
// characters, then the full uppercased identifier.
func AuthorPath(author string) (string, error) {
	a := strings.ToUpper(strings.TrimSpace(author))
	if a == "" {
		return "", errors.New("empty author identifier")
	}
	two := a
	if len(a) > 2 {
		two = a[:2]
	}
	return path.Join(a[:1], two, a), nil
}

// AuthorDir returns the absolute author directory under root.
func AuthorDir(root, author string) (string, error) {
	p, err := AuthorPath(author)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "authors", "id", filepath.FromSlash(p)), nil
}

// EnsureAuthorDir creates the author directory under root if it does not
// exist yet.  Existing directories are left untouched.
func EnsureAuthorDir(root, author string, mode os.FileMode) (string, error) {
	dir, err := AuthorDir(root, author)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil:
		if !st.IsDir() {
			return "", errors.New("not a directory: " + dir)
		}
		return dir, nil
	case !os.IsNotExist(err):
		return "", err
	}
	if err := os.MkdirAll(dir, mode); err != nil {
		return "", errors.Wrap(err, "EnsureAuthorDir")
	}
	return dir, nil
}
