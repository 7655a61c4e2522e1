package repo

import (
	"bufio"
	"compress/gzip"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/ulikunitz/xz"

	"github.com/cpanctl/cpanctl/internal/cpan"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// AddRequest carries the four required arguments of Add.
type AddRequest struct {
	Module  string
	Author  string
	Version string
	File    string
}

func (req *AddRequest) check() error {
	missing := ""
	switch {
	case req.Module == "":
		missing = "module"
	case req.Author == "":
		missing = "author"
	case req.Version == "":
		missing = "version"
	case req.File == "":
		missing = "file"
	}
	if missing != "" {
		return errors.Mark(errors.New("missing parameter: "+missing), ErrMissingParameter)
	}
	return nil
}

// Add copies a distribution file into the author's directory under the
// repository root and appends the formatted record to the in-memory
// module list.  The list is not persisted; the caller saves it
// explicitly.  Adding the same inputs twice yields two entries; the index
// merge is the deduplication point.
func (r *Repo) Add(req AddRequest) error {
	if err := req.check(); err != nil {
		return err
	}
	if r.config.Repository == "" {
		return errors.Mark(errors.New("no repository configured"), ErrConfiguration)
	}
	st, err := os.Stat(r.config.Repository)
	if err != nil || !st.IsDir() {
		return errors.Mark(errors.New("repository is not a directory: "+r.config.Repository), ErrConfiguration)
	}
	if st.Mode().Perm()&0o200 == 0 {
		return errors.Mark(errors.New("repository is not writable: "+r.config.Repository), ErrPermission)
	}

	if err := checkDistFile(req.File); err != nil {
		return err
	}

	author := req.Author
	dir, err := cpan.EnsureAuthorDir(r.config.Repository, author, r.config.DirMode.FileMode)
	if err != nil {
		return errors.Mark(err, ErrPermission)
	}

	filename := filepath.Base(req.File)
	dst := filepath.Join(dir, filename)
	if err := copyFile(req.File, dst, r.config.FileMode()); err != nil {
		return errors.Mark(err, ErrCopy)
	}

	authorPath, err := cpan.AuthorPath(author)
	if err != nil {
		return err
	}
	record := cpan.Record{
		Name:    req.Module,
		Version: req.Version,
		Path:    path.Join(authorPath, filename),
	}
	r.list.Append(record.Line())

	slog.Info("added module", "module", req.Module, "author", author, "version", req.Version, "path", record.Path)
	return nil
}

// checkDistFile verifies that the source file is readable and is a
// recognized compressed archive (gzip or xz).
func checkDistFile(file string) error {
	f, err := os.Open(file) // #nosec G304 - operator supplied argument
	if err != nil {
		return errors.Mark(errors.Wrap(err, "source file not readable"), ErrPermission)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(len(xzMagic))
	if err != nil {
		return errors.Mark(errors.Wrap(err, "source file too short: "+file), ErrCopy)
	}

	switch {
	case magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1]:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return errors.Mark(errors.Wrap(err, "corrupt gzip archive: "+file), ErrCopy)
		}
		return zr.Close()
	case string(magic) == string(xzMagic):
		if _, err := xz.NewReader(br); err != nil {
			return errors.Mark(errors.Wrap(err, "corrupt xz archive: "+file), ErrCopy)
		}
		return nil
	default:
		return errors.Mark(errors.New("unrecognized archive format: "+file), ErrCopy)
	}
}
