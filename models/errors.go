package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a tenant, its documents or its index do not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotLoaded indicates a chat against a tenant whose documents were never loaded.
	ErrNotLoaded = errors.New("documents not loaded")

	// ErrInvalidInput indicates a malformed tenant identifier, file name or message.
	ErrInvalidInput = errors.New("invalid input")
)

// UpstreamError wraps a failed embedding or language model call, timeouts included.
type UpstreamError struct {
	Provider string
	Op       string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StorageError wraps a failed read or write of documents or index data.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsUpstream reports whether err came from an external provider.
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}

// IsStorage reports whether err came from the filesystem or index storage.
func IsStorage(err error) bool {
	var storage *StorageError
	return errors.As(err, &storage)
}
