package fsutil

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("file not found")

// FileStore reads source documents from a backing store
type FileStore interface {
	// ReadFile reads a file and returns its contents
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Stat returns the name and size of a file
	Stat(ctx context.Context, path string) (FileInfo, error)
}

// FileInfo describes a stored file
type FileInfo struct {
	Name string
	Size int64
}
