package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// FileStore writes uploaded files under a local root directory. Stored paths
// are relative to the root and double as public URL paths under /uploads.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Upload stores src under prefix with a generated name, keeping the original
// extension, and returns the relative stored path.
func (s *FileStore) Upload(prefix, filename string, src io.Reader) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := id + ext
	dir := filepath.Join(s.root, filepath.FromSlash(prefix))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}

	return prefix + "/" + name, nil
}

// Remove deletes a previously stored file. Removing a missing file is not an
// error.
func (s *FileStore) Remove(path string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
