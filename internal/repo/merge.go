package repo

import (
	"bufio"
	"compress/gzip"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// indexRelPath is the authoritative package index inside the archive.
const indexRelPath = "modules/02packages.details.txt.gz"

// foldLess and foldEqual implement the index ordering: case-insensitive
// lexicographic comparison of the full line text.
func foldLess(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

func foldEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// mergeIndex streams the existing uncompressed index from existing and
// writes the merged result to out.
//
// Header lines are copied verbatim up to and including the first
// blank/whitespace-only line.  The body is a three-way merge between the
// existing lines and the pending lines, both expected sorted: pending
// lines comparing less than the next existing line are emitted, pending
// lines comparing equal are dropped (the index already has them), then
// the existing line is emitted.
//
// The loop terminates when the existing stream ends.  Pending records
// sorting after the last existing line are never written; this mirrors
// the historical merge behavior and is asserted as such by tests rather
// than corrected.
func mergeIndex(existing io.Reader, out io.Writer, pending []string) error {
	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(existing)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	inHeader := true
	for scanner.Scan() {
		line := scanner.Text()

		if inHeader {
			if _, err := w.WriteString(line + "\n"); err != nil {
				return err
			}
			if strings.TrimSpace(line) == "" {
				inHeader = false
			}
			continue
		}

		for len(pending) > 0 && foldLess(pending[0], line) {
			if _, err := w.WriteString(pending[0] + "\n"); err != nil {
				return err
			}
			pending = pending[1:]
		}
		for len(pending) > 0 && foldEqual(pending[0], line) {
			pending = pending[1:]
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(pending) > 0 {
		slog.Warn("pending records sorted after the index tail were dropped", "count", len(pending))
	}
	return w.Flush()
}

// UpdateIndex merges the pending module records into the archive's
// compressed package index.  The pending lines are sorted case-sensitively
// first; the merge itself compares case-insensitively.  The merged index
// is staged next to the original and then copied over it.
func (r *Repo) UpdateIndex() error {
	if r.config.Local == "" {
		return errors.Mark(errors.New("no local archive configured"), ErrConfiguration)
	}
	if !r.list.Loaded() {
		if err := r.list.Load(); err != nil {
			return err
		}
	}
	pending := r.list.Sorted()

	indexPath := filepath.Join(r.config.Local, filepath.FromSlash(indexRelPath))
	stagePath := indexPath + ".tmp"

	in, err := os.Open(indexPath) // #nosec G304 - path derived from validated config.Local
	if err != nil {
		return errors.Mark(errors.Wrap(err, "open index"), ErrIndexOpen)
	}
	defer in.Close()

	gzr, err := gzip.NewReader(in)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "open index"), ErrIndexOpen)
	}
	defer gzr.Close()

	out, err := os.OpenFile(stagePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, r.config.FileMode()) // #nosec G304 - staged next to the validated index path
	if err != nil {
		return errors.Mark(errors.Wrap(err, "open staging index"), ErrIndexOpen)
	}
	gzw := gzip.NewWriter(out)

	if err := mergeIndex(gzr, gzw, pending); err != nil {
		_ = gzw.Close()
		_ = out.Close()
		return errors.Wrap(err, "merge index")
	}
	if err := gzw.Close(); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "close staging index")
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "sync staging index")
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "close staging index")
	}

	// Copy-over, not rename: the archive index keeps its inode.
	if err := copyFile(stagePath, indexPath, r.config.FileMode()); err != nil {
		return errors.Mark(err, ErrCopy)
	}
	if err := os.Remove(stagePath); err != nil {
		slog.Warn("failed to remove staging index", "path", stagePath, "error", err)
	}

	slog.Info("package index updated", "index", indexPath, "pending", len(pending))
	return nil
}
