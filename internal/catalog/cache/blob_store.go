package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/appdex/appdex/internal/catalog/errs"
)

// BlobStore keeps backend-local persisted snapshots (a downloaded ratings
// dump, a firmware metadata file) as opaque blobs keyed by backend name
// plus resource name. The core consumes only the blob's location and
// staleness, never its contents.
type BlobStore struct {
	root string
}

// NewBlobStore creates a store rooted at dir, creating it if needed.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, errs.CodeWriteFailed, "failed to create cache dir")
	}
	return &BlobStore{root: dir}, nil
}

// Path returns where the blob for backend/resource lives. The file may
// not exist yet.
func (s *BlobStore) Path(backend, resource string) string {
	return filepath.Join(s.root, backend, resource)
}

// Age returns how old the blob is, or a negative duration when the blob
// does not exist.
func (s *BlobStore) Age(backend, resource string) time.Duration {
	info, err := os.Stat(s.Path(backend, resource))
	if err != nil {
		return -1
	}
	return time.Since(info.ModTime())
}

// IsStale reports whether the blob is missing or older than maxAge.
func (s *BlobStore) IsStale(backend, resource string, maxAge time.Duration) bool {
	age := s.Age(backend, resource)
	return age < 0 || age > maxAge
}

// Write atomically replaces the blob's content.
func (s *BlobStore) Write(backend, resource string, data []byte) error {
	path := s.Path(backend, resource)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, errs.CodeWriteFailed, "failed to create blob dir")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errs.Wrap(err, errs.CodeWriteFailed, "failed to write blob")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Wrap(err, errs.CodeWriteFailed, "failed to commit blob")
	}
	return nil
}

// Read returns the blob's content.
func (s *BlobStore) Read(backend, resource string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(backend, resource))
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeFailed, "failed to read blob")
	}
	return data, nil
}
