// Package storage keeps uploaded files on local disk.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/silaibook/silaibook/internal/shared"
)

// PhotoStore writes uploaded photos under a directory served at a public URL prefix.
type PhotoStore struct {
	dir       string
	publicURL string
}

var allowedPhotoExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// NewPhotoStore creates dir when missing.
func NewPhotoStore(dir, publicURL string) (*PhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create photo dir: %w", err)
	}
	return &PhotoStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Dir returns the directory photos are written to.
func (s *PhotoStore) Dir() string {
	return s.dir
}

// Save copies r into a file named after a random uuid, keeping the original
// extension, and returns the public URL.
func (s *PhotoStore) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedPhotoExt[ext] {
		return "", fmt.Errorf("%w: unsupported photo type %q", shared.ErrInvalidInput, ext)
	}
	name := uuid.NewString() + ext
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("storage: create photo: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("storage: write photo: %w", err)
	}
	return s.publicURL + "/" + name, nil
}
