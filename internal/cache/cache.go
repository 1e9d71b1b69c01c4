// Package cache implements C5 from spec.md §4.4: a content-addressed,
// atomically-written per-file store with single-flight build
// deduplication. Atomic-write and on-disk layout conventions are grounded
// in the teacher's internal/config.Manager.Save
// (_examples/billie-coop-loco/internal/config/config.go writes via
// os.WriteFile) generalized to a temp-file-then-rename sequence, and
// single-flight tracking reuses internal/csync.Map, the same generic
// thread-safe map the teacher's queue.Deduplicator is built on
// (_examples/billie-coop-loco/internal/llm/queue).
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kbindex/indexer/internal/model"
)

// Store is a content-addressed cache rooted at a knowledge directory.
type Store struct {
	root string // {knowledge_dir}/{handler_type}/cache
}

// New builds a Store rooted at cacheRoot
// ("{knowledge_dir}/{handler_type}/cache").
func New(cacheRoot string) *Store {
	return &Store{root: cacheRoot}
}

func (s *Store) path(key model.CacheKey) string {
	return filepath.Join(s.root, key.String())
}

// Get returns the cached bytes and their mtime, or ok=false on a miss
// (spec.md §4.4 "get(key) → (bytes, timestamp) | miss").
func (s *Store) Get(key model.CacheKey) (content []byte, mtime time.Time, ok bool, err error) {
	p := s.path(key)
	info, statErr := os.Stat(p)
	if os.IsNotExist(statErr) {
		return nil, time.Time{}, false, nil
	}
	if statErr != nil {
		return nil, time.Time{}, false, fmt.Errorf("cache: stat %s: %w", p, statErr)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("cache: read %s: %w", p, err)
	}
	return data, info.ModTime(), true, nil
}

// Put atomically writes content for key via temp-file-then-rename
// (spec.md §4.4 "put(key, bytes): atomic (temp + rename)").
func (s *Store) Put(key model.CacheKey, content []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cache: create cache dir for %s: %w", p, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp file for %s: %w", p, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: write temp file for %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: close temp file for %s: %w", p, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: rename temp file into %s: %w", p, err)
	}
	return nil
}

// IsFresh reports whether key's cache entry exists and its mtime is at or
// after the maximum mtime of dependencies, within toleranceSeconds
// (spec.md §4.4 "is_fresh(key, dependency_set)").
func (s *Store) IsFresh(key model.CacheKey, dependencies []time.Time, toleranceSeconds int) (bool, error) {
	p := s.path(key)
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: stat %s: %w", p, err)
	}
	tol := time.Duration(toleranceSeconds) * time.Second
	cacheMtime := info.ModTime()
	for _, dep := range dependencies {
		if dep.After(cacheMtime.Add(tol)) {
			return false, nil
		}
	}
	return true, nil
}

// Exists reports whether key has a cache entry, without reading it.
func (s *Store) Exists(key model.CacheKey) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Delete removes key's cache entry, used for ORPHAN cleanup tasks
// (spec.md §4.5 "Orphans ... emit DELETE with reason ORPHAN"). A missing
// file is not an error.
func (s *Store) Delete(key model.CacheKey) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: delete %s: %w", s.path(key), err)
	}
	return nil
}
