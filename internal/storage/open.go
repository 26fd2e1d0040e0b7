package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Backend is a state document store that may hold resources.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, doc []byte) error
	// Delete removes the stored document; a later Load returns nil, nil.
	Delete(ctx context.Context) error
	io.Closer
}

type fileBackend struct{ *File }

func (fileBackend) Close() error { return nil }

type memoryBackend struct{ *Memory }

func (memoryBackend) Close() error { return nil }

// OpenBackend opens the backend named by driver ("sqlite", "file" or "memory").
func OpenBackend(driver, path string) (Backend, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "":
		db, err := Open(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "file", "json":
		return fileBackend{NewFile(path)}, nil
	case "memory":
		return memoryBackend{NewMemory()}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
