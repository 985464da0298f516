package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes media under a directory served by the API itself.
// Used in development when no bucket is configured.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a store rooted at dir whose files are served under baseURL
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{root: dir, baseURL: baseURL}, nil
}

// Root is the directory files are written to
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(ctx context.Context, kind Kind, ownerID, filename string, body io.Reader, size int64) (*UploadResult, error) {
	key := objectKey(kind, ownerID, filename, time.Now())
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create media file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, body)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write media file: %w", err)
	}
	return &UploadResult{Key: key, URL: publicURL(s.baseURL, key), Size: written}, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if strings.Contains(key, "..") {
		return fmt.Errorf("invalid media key %q", key)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}
