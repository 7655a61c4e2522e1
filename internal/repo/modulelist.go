package repo

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// listFilename is the module list file in the repository root.
const listFilename = "modulelist"

// ModuleList holds the repository's pending module records as raw index
// lines.  The on-disk file has no guaranteed order; Save rewrites it
// sorted case-sensitively.  Duplicates are kept here and resolved only by
// the index merge.
type ModuleList struct {
	path   string
	mode   os.FileMode
	lines  []string
	loaded bool
}

// NewModuleList constructs a ModuleList for the repository at repoDir.
func NewModuleList(repoDir string, fileMode os.FileMode) *ModuleList {
	return &ModuleList{
		path: filepath.Join(repoDir, listFilename),
		mode: fileMode,
	}
}

// Loaded reports whether Load has been called.
func (l *ModuleList) Loaded() bool {
	return l.loaded
}

// Load reads the list file.  A missing file yields an empty list, not an
// error.
func (l *ModuleList) Load() error {
	f, err := os.Open(l.path) // #nosec G304 - path derived from validated repository root
	switch {
	case os.IsNotExist(err):
		l.lines = nil
		l.loaded = true
		return nil
	case err != nil:
		return errors.Mark(errors.Wrap(err, "ModuleList.Load"), ErrRead)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return errors.Mark(errors.Wrap(err, "ModuleList.Load"), ErrRead)
	}

	l.lines = lines
	l.loaded = true
	return nil
}

// Append adds one formatted record line in memory.  Nothing is persisted
// until Save.  The in-memory list counts as loaded afterwards so later
// operations do not clobber it by re-reading the file.
func (l *ModuleList) Append(line string) {
	l.lines = append(l.lines, line)
	l.loaded = true
}

// Lines returns the in-memory record lines in load/append order.
func (l *ModuleList) Lines() []string {
	return l.lines
}

// Sorted returns a copy of the lines sorted case-sensitively as plain
// text.  This ASCII order is deliberately different from the
// case-insensitive order of the package index.
func (l *ModuleList) Sorted() []string {
	sorted := make([]string, len(l.lines))
	copy(sorted, l.lines)
	sort.Strings(sorted)
	return sorted
}

// Save rewrites the list file with the sorted lines and normalizes its
// permissions.  An empty list is a successful no-op.
func (l *ModuleList) Save() error {
	if len(l.lines) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, line := range l.Sorted() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(l.path, []byte(sb.String()), l.mode); err != nil {
		return errors.Mark(errors.Wrap(err, "ModuleList.Save"), ErrWrite)
	}
	if err := os.Chmod(l.path, l.mode); err != nil {
		return errors.Mark(errors.Wrap(err, "ModuleList.Save"), ErrWrite)
	}
	return DirSync(filepath.Dir(l.path))
}
