package repo

import "github.com/cockroachdb/errors"

// isMarked reports whether err carries the given sentinel.
func isMarked(err, reference error) bool {
	return errors.Is(err, reference)
}
