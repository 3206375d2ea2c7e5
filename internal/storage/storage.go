package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotFound is returned when no feed file has been written yet.
var ErrNotFound = errors.New("feed file not found")

// Storage keeps the rendered feed document on local disk
type Storage struct {
	path string
	mu   sync.RWMutex
}

func NewStorage(path string) (*Storage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Storage{
		path: path,
	}, nil
}

// Path returns the output file location
func (s *Storage) Path() string {
	return s.path
}

// Save replaces the feed file. The document goes to a temporary file in the same
// directory first, so readers see either the previous or the new feed.
func (s *Storage) Save(ctx context.Context, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
		if err != nil {
			return fmt.Errorf("failed to create temp file: %w", err)
		}
		tmpName := tmp.Name()
		defer os.Remove(tmpName)

		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write feed file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to close feed file: %w", err)
		}
		if err := os.Chmod(tmpName, 0644); err != nil {
			return fmt.Errorf("failed to set feed file mode: %w", err)
		}
		if err := os.Rename(tmpName, s.path); err != nil {
			return fmt.Errorf("failed to replace feed file: %w", err)
		}

		return nil
	}
}

// Load returns the current feed document and its modification time
func (s *Storage) Load(ctx context.Context) ([]byte, time.Time, error) {
	select {
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	default:
		s.mu.RLock()
		defer s.mu.RUnlock()

		info, err := os.Stat(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, time.Time{}, ErrNotFound
			}
			return nil, time.Time{}, fmt.Errorf("failed to stat feed file: %w", err)
		}

		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to read feed file: %w", err)
		}

		return data, info.ModTime(), nil
	}
}

// Exists reports whether a feed has been written
func (s *Storage) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path)
	return err == nil
}
