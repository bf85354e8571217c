// Package storage is the object-storage boundary for medical record
// documents. Callers hand over bytes and get back a stable opaque path; the
// disk implementation keeps files under a configured root directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
)

// Store is the contract for document storage backends.
type Store interface {
	// Save persists the content and returns an opaque path for later retrieval.
	Save(ctx context.Context, ownerID, fileName string, content io.Reader) (string, error)
	// Open returns a reader for a previously saved document.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes a previously saved document.
	Delete(ctx context.Context, path string) error
}

// DiskStore stores documents on the local filesystem under Root.
type DiskStore struct {
	Root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DiskStore{Root: root}, nil
}

// Save writes the content under "<ownerID>/<timestamp>-<rand><ext>" and
// returns that relative path.
func (s *DiskStore) Save(ctx context.Context, ownerID, fileName string, content io.Reader) (string, error) {
	if ownerID == "" || strings.ContainsAny(ownerID, "/\\") {
		return "", ErrInvalidPath
	}
	dir := filepath.Join(s.Root, ownerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create owner dir: %w", err)
	}

	name := fmt.Sprintf("%d-%06d%s", time.Now().UnixMilli(), rand.Intn(1_000_000), filepath.Ext(fileName))
	full := filepath.Join(dir, name)

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create document file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("write document: %w", err)
	}
	return ownerID + "/" + name, nil
}

// Open resolves the opaque path under the root, refusing traversal outside it.
func (s *DiskStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the document; a missing file is reported as ErrNotFound.
func (s *DiskStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); os.IsNotExist(err) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return nil
}

func (s *DiskStore) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.Root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.Root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidPath
	}
	return full, nil
}
