package inventory

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines file storage for uploaded receipt files.
type Storage interface {
	// Save stores the data under a name derived from filename and returns the
	// absolute path of the stored file.
	Save(filename string, data []byte) (string, error)

	// Get retrieves a stored file by its absolute path.
	Get(path string) ([]byte, error)

	// Delete removes a stored file.
	Delete(path string) error
}

// LocalStorage implements Storage on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the storage directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolving storage directory: %w", err)
	}

	return &LocalStorage{basePath: abs}, nil
}

// Save writes the file and returns its absolute path.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

// Get reads a stored file.
func (l *LocalStorage) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a stored file.
func (l *LocalStorage) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
