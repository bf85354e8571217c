package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	path, err := store.Save(ctx, "patient-1", "scan.pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(path, "patient-1/") {
		t.Errorf("path should be scoped to owner, got %q", path)
	}
	if !strings.HasSuffix(path, ".pdf") {
		t.Errorf("path should keep the extension, got %q", path)
	}

	rc, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "pdf-bytes" {
		t.Errorf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, path); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Open(ctx, "../etc/passwd"); err != ErrInvalidPath {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if _, err := store.Save(ctx, "../sneaky", "a.txt", strings.NewReader("x")); err != ErrInvalidPath {
		t.Fatalf("expected ErrInvalidPath for bad owner, got %v", err)
	}
}
