// Package blob abstracts the byte-storage collaborator. File content is
// addressed by an opaque key of the form {ownerID}/{storedPath}; metadata
// stays in the database.
package blob

import (
	"context"
	"io"
)

// Storage is the byte-store contract consumed by the file service.
type Storage interface {
	// Exists reports whether a blob is present under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Open returns a reader over the blob. The caller must close it on
	// every exit path.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Write stores the full content of r under key, replacing any previous
	// blob.
	Write(ctx context.Context, key string, r io.Reader) error

	// Delete removes the blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key builds the canonical blob key for a file.
func Key(ownerID, storedPath string) string {
	return ownerID + "/" + storedPath
}
