package cpan

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// nameColumnWidth is the minimum width the module name field is padded to
// in a 02packages body line.  The version column therefore never starts
// before column 39, no matter how short the name is.
const nameColumnWidth = 38

// Record is a single entry in the package index: a module name, its
// version (opaque text, compared only lexically), and the archive-relative
// path of the distribution file under authors/id.
type Record struct {
	Name    string
	Version string
	Path    string
}

// Line serializes the record in the fixed-column 02packages format.
func (r Record) Line() string {
	return fmt.Sprintf("%-*s %s  %s", nameColumnWidth, r.Name, r.Version, r.Path)
}

// ParseLine splits a 02packages body line back into a Record.
// Lines with fewer than three whitespace-separated fields are rejected.
func ParseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Record{}, errors.New("malformed index line: " + line)
	}
	return Record{
		Name:    fields[0],
		Version: fields[1],
		Path:    fields[2],
	}, nil
}
