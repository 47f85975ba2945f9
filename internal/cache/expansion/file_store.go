package expansion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kgbuilder/internal/types/kg"
	"kgbuilder/internal/util/jsonutil"
)

// FileStore keeps the whole cache as one JSON object on disk, keyed by
// kg.CacheKey. Every Save rewrites the file through a tmp+rename so a crash
// never leaves a half-written cache behind.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]kg.Expansion
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	return &FileStore{path: path, entries: map[string]kg.Expansion{}}, nil
}

func (s *FileStore) Path() string { return s.path }

// Load reads the cache file. A missing file is an empty cache; an unreadable
// one is reported so the caller can decide whether to start cold.
func (s *FileStore) Load(_ context.Context) (map[string]kg.Expansion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]kg.Expansion{}, nil
		}
		return nil, err
	}
	entries := map[string]kg.Expansion{}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode cache %s: %w", s.path, err)
		}
	}
	s.entries = make(map[string]kg.Expansion, len(entries))
	for k, v := range entries {
		s.entries[k] = v
	}
	return entries, nil
}

func (s *FileStore) Save(_ context.Context, key string, exp kg.Expansion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = exp
	return s.persistLocked()
}

func (s *FileStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	raw, err := jsonutil.MarshalNoEscapeIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
