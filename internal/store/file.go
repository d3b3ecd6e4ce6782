package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const (
	recordsDir  = "records"
	countersDir = "counters"
	fileExt     = ".json"
)

// FileStore keeps one file per key under a root directory.
// Writes go to a temporary file that is renamed over the target, so a crash
// never leaves a half-written record behind.
type FileStore struct {
	fs   afero.Fs
	root string
	mu   sync.RWMutex
}

// NewFileStore creates a FileStore rooted at dir on fsys.
// Pass afero.NewOsFs() in production and afero.NewMemMapFs() in tests.
func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	for _, sub := range []string{recordsDir, countersDir} {
		if err := fsys.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &FileStore{fs: fsys, root: dir}, nil
}

func (s *FileStore) path(sub, key string) string {
	return filepath.Join(s.root, sub, url.PathEscape(key)+fileExt)
}

// Get returns the value for key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := afero.ReadFile(s.fs, s.path(recordsDir, key))
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set writes value under key.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeAtomic(s.path(recordsDir, key), value)
}

// List returns keys starting with prefix.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	infos, err := afero.ReadDir(s.fs, filepath.Join(s.root, recordsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list store: %w", err)
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Incr increments the named counter.
func (s *FileStore) Incr(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.path(countersDir, name)
	var current int64
	data, err := afero.ReadFile(s.fs, p)
	switch {
	case err == nil:
		current, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse counter %s: %w", name, err)
		}
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist):
	default:
		return 0, fmt.Errorf("failed to read counter %s: %w", name, err)
	}

	next := current + 1
	if err := s.writeAtomic(p, []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) writeAtomic(target string, data []byte) error {
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(target), err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to commit %s: %w", filepath.Base(target), err)
	}
	return nil
}
