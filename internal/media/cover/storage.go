package cover

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Storage persists computed placeholders, one small JSON file per work.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

// NewStorage creates the directory if needed.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, errors.New("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create placeholder directory: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Save stores p for id.
func (s *Storage) Save(id string, p *Placeholder) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal placeholder: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write placeholder: %w", err)
	}
	return nil
}

// Get returns the stored placeholder, or nil when there is none.
func (s *Storage) Get(id string) (*Placeholder, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read placeholder: %w", err)
	}

	var p Placeholder
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode placeholder %s: %w", id, err)
	}
	return &p, nil
}

// Delete removes the placeholder for id. Missing files are not an error.
func (s *Storage) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete placeholder: %w", err)
	}
	return nil
}

func (s *Storage) path(id string) (string, error) {
	if id == "" {
		return "", errors.New("ID cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid placeholder id %q", id)
	}
	return filepath.Join(s.basePath, id+".json"), nil
}
