package repo

import "github.com/cockroachdb/errors"

// Error kinds raised by repository operations.  All of them are fatal to
// the current operation; nothing is retried internally.  Callers test with
// errors.Is; the wrapped message carries the underlying OS cause.
var (
	// ErrConfiguration reports a required setting that is missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrMissingParameter reports a required argument the caller omitted.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrPermission reports a target that is not readable or writable.
	ErrPermission = errors.New("permission denied")

	// ErrCopy reports an I/O failure during a file copy.
	ErrCopy = errors.New("copy failed")

	// ErrIndexOpen reports a package index stream that could not be opened.
	ErrIndexOpen = errors.New("cannot open package index")

	// ErrRead reports a module list file that exists but cannot be read.
	ErrRead = errors.New("cannot read module list")

	// ErrWrite reports a module list file that cannot be written.
	ErrWrite = errors.New("cannot write module list")
)
