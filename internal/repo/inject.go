package repo

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/cheggaaa/pb/v3"
	"github.com/cockroachdb/errors"

	"github.com/cpanctl/cpanctl/internal/cpan"
)

// Inject copies every pending distribution file from the repository into
// the mirrored archive, regenerates the checksum manifest of each touched
// author directory, and finally merges the pending records into the
// package index.
func (r *Repo) Inject() error {
	if r.config.Repository == "" {
		return errors.Mark(errors.New("no repository configured"), ErrConfiguration)
	}
	if r.config.Local == "" {
		return errors.Mark(errors.New("no local archive configured"), ErrConfiguration)
	}
	if !r.list.Loaded() {
		if err := r.list.Load(); err != nil {
			return err
		}
	}

	lines := r.list.Lines()
	var bar *pb.ProgressBar
	if !r.quiet && len(lines) > 0 {
		bar = pb.StartNew(len(lines))
		defer bar.Finish()
	}

	touched := make(map[string]bool)
	for _, line := range lines {
		record, err := cpan.ParseLine(line)
		if err != nil {
			return err
		}
		if err := validateRecordPath(record.Path); err != nil {
			return err
		}

		rel := filepath.FromSlash(record.Path)
		src := filepath.Join(r.config.Repository, "authors", "id", rel)
		dst := filepath.Join(r.config.Local, "authors", "id", rel)

		if err := os.MkdirAll(filepath.Dir(dst), r.config.DirMode.FileMode); err != nil {
			return errors.Mark(errors.Wrap(err, "inject "+record.Path), ErrCopy)
		}
		if err := copyFile(src, dst, r.config.FileMode()); err != nil {
			return errors.Mark(err, ErrCopy)
		}

		touched[filepath.Dir(dst)] = true
		slog.Debug("injected file", "module", record.Name, "path", record.Path)
		if bar != nil {
			bar.Increment()
		}
	}

	dirs := make([]string, 0, len(touched))
	for dir := range touched {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		if r.updater == nil {
			return errors.New("no manifest updater configured")
		}
		if err := r.updater.Update(dir); err != nil {
			return errors.Wrap(err, "update manifest for "+dir)
		}
		manifest := filepath.Join(dir, cpan.ManifestFilename)
		if err := os.Chmod(manifest, r.config.FileMode()); err != nil {
			return errors.Wrap(err, "chmod manifest "+manifest)
		}
		slog.Info("regenerated manifest", "dir", dir)
	}

	return r.UpdateIndex()
}
