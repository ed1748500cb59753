// Package storage keeps attachment bytes outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for object paths that escape the store root.
var ErrInvalidPath = errors.New("invalid object path")

// ObjectStore uploads files and resolves their public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, data []byte) error
	Delete(ctx context.Context, objectPath string) error
	PublicURL(objectPath string) string
}

// FilesystemStore stores objects under a root directory and serves them from a base URL.
type FilesystemStore struct {
	root    string
	baseURL string
}

// NewFilesystemStore creates the root directory when missing.
func NewFilesystemStore(root, baseURL string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FilesystemStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory objects are written to.
func (s *FilesystemStore) Root() string {
	return s.root
}

// Upload writes data to objectPath, replacing any existing object.
func (s *FilesystemStore) Upload(ctx context.Context, objectPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	tmp := full + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

// Delete removes objectPath. Missing objects are not an error.
func (s *FilesystemStore) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PublicURL returns the stable URL for objectPath.
func (s *FilesystemStore) PublicURL(objectPath string) string {
	clean := path.Clean("/" + objectPath)
	segments := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

func (s *FilesystemStore) resolve(objectPath string) (string, error) {
	if objectPath == "" || strings.Contains(objectPath, "\\") {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + objectPath)
	if clean == "/" || clean != "/"+strings.TrimPrefix(objectPath, "/") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
