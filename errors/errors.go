// Package errors defines all exported error sentinels for the perfectmap library.
//
// This is the single source of truth for error values. Both the top-level
// perfectmap package and the mph and internal packages import from here,
// ensuring errors.Is checks work across package boundaries.
package errors

import "errors"

// Hash function build errors
var (
	ErrDuplicateHash    = errors.New("perfectmap: duplicate key hash detected")
	ErrSeedSearchFailed = errors.New("perfectmap: displacement seed search failed - retry with a different seed")
)

// Codec errors
var (
	ErrMissingField    = errors.New("perfectmap: missing required field")
	ErrDuplicateField  = errors.New("perfectmap: duplicate field")
	ErrUnknownField    = errors.New("perfectmap: unrecognized field")
	ErrInvalidFunction = errors.New("perfectmap: invalid hash function bytes")
	ErrUnexpectedKeys  = errors.New("perfectmap: keyless map cannot carry keys")
	ErrLengthMismatch  = errors.New("perfectmap: element count does not match hash function size")
)

// Container errors
var (
	ErrInvalidMagic   = errors.New("perfectmap: invalid magic number")
	ErrInvalidVersion = errors.New("perfectmap: unsupported version")
	ErrTruncated      = errors.New("perfectmap: container data is truncated")
	ErrChecksum       = errors.New("perfectmap: container checksum verification failed")
)
