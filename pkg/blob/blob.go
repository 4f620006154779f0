// Package blob stores files of records by key.
package blob

import (
	"bytes"
	"context"
	"errors"
	"io"

	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

// Driver identifies a Store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// Store is a key-addressed blob store.
//
// Keys are slash separated relative paths, like "binding/callingcards/1.qbed.gz".
type Store interface {
	// Put writes the content of r under key. An existing blob is overwritten.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the blob of key.
	//
	// If it is missing, returns an error wrapping errors.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the blob of key. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// ReadAll reads whole content of the blob of key.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	r, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// PutBytes writes content under key.
func PutBytes(ctx context.Context, s Store, key string, content []byte) error {
	return s.Put(ctx, key, bytes.NewReader(content))
}

// Move renames the blob from to the key to.
//
// Move is idempotent: when from is missing and to exists, it has been moved already.
func Move(ctx context.Context, s Store, from, to string) error {
	if from == to {
		return nil
	}
	r, err := s.Get(ctx, from)
	if errors.Is(err, xe.ErrNotFound) {
		if ok, eerr := s.Exists(ctx, to); eerr == nil && ok {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}
	defer r.Close()

	if err := s.Put(ctx, to, r); err != nil {
		return err
	}
	return s.Delete(ctx, from)
}
