package infrastructure

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MediaStorage keeps uploaded files on local disk below root. Stored paths
// are slash-separated and relative to root, e.g. "cover_pics/<uuid>.png".
type MediaStorage struct {
	root string
}

func NewMediaStorage(root string) *MediaStorage {
	return &MediaStorage{root: root}
}

func (m *MediaStorage) Root() string {
	return m.root
}

// Save writes src under dir with a fresh name that keeps the lowercased
// extension of originalName.
func (m *MediaStorage) Save(dir, originalName string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	rel := path.Join(dir, uuid.NewString()+ext)

	if err := os.MkdirAll(filepath.Join(m.root, filepath.FromSlash(dir)), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	dst, err := os.Create(m.Path(rel))
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(m.Path(rel))
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close media file: %w", err)
	}
	return rel, nil
}

// Path resolves a stored relative path to a filesystem path.
func (m *MediaStorage) Path(rel string) string {
	return filepath.Join(m.root, filepath.FromSlash(rel))
}

// Remove deletes a stored file. Missing files are ignored.
func (m *MediaStorage) Remove(rel string) {
	if rel == "" {
		return
	}
	if err := os.Remove(m.Path(rel)); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove media file %s: %v", rel, err)
	}
}
