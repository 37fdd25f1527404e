package asset

import "errors"

// ErrNotFound is returned by Open when the path does not name a file.
var ErrNotFound = errors.New("asset: not found")

// Store resolves logical paths and opens the files they name.
//
// Implementations must be safe for concurrent use: the coordinator resolves
// while worker goroutines open and read.
type Store interface {
	// Resolve expands wildcards and returns the concrete path of an
	// existing file.
	Resolve(p ResPath) (ResPath, bool)

	// Open opens a resolved path.
	Open(p ResPath) (File, error)
}

// File is an opened asset.
type File interface {
	ReadAll() ([]byte, error)
}
