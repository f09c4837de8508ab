// Package store is the process-wide accessor for the memoized artifact
// bundle, the source-freshness map cache, and the tiered cache. It follows
// a reader-preferred, single-writer/many-reader discipline: readers take a
// snapshot reference under a read lock and compute against it without
// holding any lock afterward.
package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"obs-engine/internal/artifact"
	"obs-engine/internal/cache"
	"obs-engine/internal/obserr"
)

// Store owns the memoized current Manifest Bundle, the tiered cache, and
// per-path source-freshness caches for one artifacts directory.
type Store struct {
	artifactsDir string
	logger       *slog.Logger

	mu              sync.RWMutex
	bundle          *artifact.Bundle
	manifestModTime time.Time

	sourcesMu sync.RWMutex
	sources   map[string]*sourcesCacheEntry

	cache   *cache.Cache
	watcher *fsnotify.Watcher
}

type sourcesCacheEntry struct {
	modTime time.Time
	data    artifact.FreshnessMap
}

// New creates a Store rooted at artifactsDir. No file is read until the
// first call to Bundle.
func New(artifactsDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		artifactsDir: artifactsDir,
		logger:       logger,
		sources:      make(map[string]*sourcesCacheEntry),
		cache:        cache.New(),
	}
}

// Cache returns the tiered cache backing this store.
func (s *Store) Cache() *cache.Cache { return s.cache }

// Bundle returns the memoized current bundle, loading or revalidating it
// from disk as needed.
func (s *Store) Bundle() (*artifact.Bundle, error) {
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle, nil
}

// ensureFresh reloads the manifest bundle when its file's modification
// time has changed, then swaps it in only if its signature actually
// differs from the memoized one.
func (s *Store) ensureFresh() error {
	manifestPath := filepath.Join(s.artifactsDir, "manifest.json")

	info, statErr := os.Stat(manifestPath)

	s.mu.RLock()
	bundle := s.bundle
	knownModTime := s.manifestModTime
	s.mu.RUnlock()

	if statErr != nil {
		if bundle == nil {
			return obserr.ErrArtifactLoad("manifest not found: %s", manifestPath)
		}
		return nil // keep serving the memoized bundle; disk hiccup is not fatal
	}

	if bundle != nil && info.ModTime().Equal(knownModTime) {
		return nil
	}

	newBundle, err := artifact.LoadBundle(s.artifactsDir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bundle == nil || newBundle.Signature() != s.bundle.Signature() {
		for _, w := range newBundle.Warnings {
			s.logger.Warn("artifact structural validation", "warning", w)
		}
		s.bundle = newBundle
	}
	s.manifestModTime = info.ModTime()
	return nil
}

// SourcesFor loads and caches the sources-freshness artifact at path,
// keyed by path and revalidated against its modification time.
func (s *Store) SourcesFor(path string) (artifact.FreshnessMap, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	s.sourcesMu.RLock()
	entry, ok := s.sources[path]
	s.sourcesMu.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) {
		return entry.data, nil
	}

	data, err := artifact.LoadSourcesFile(path)
	if err != nil {
		return nil, err
	}

	s.sourcesMu.Lock()
	s.sources[path] = &sourcesCacheEntry{modTime: info.ModTime(), data: data}
	s.sourcesMu.Unlock()
	return data, nil
}

// ResetForTest clears all memoized state so a fresh Bundle() call reloads
// from disk, letting tests start from a clean state.
func (s *Store) ResetForTest() {
	s.mu.Lock()
	s.bundle = nil
	s.manifestModTime = time.Time{}
	s.mu.Unlock()

	s.sourcesMu.Lock()
	s.sources = make(map[string]*sourcesCacheEntry)
	s.sourcesMu.Unlock()

	s.cache.Clear()
}

// Watch starts an fsnotify watch on the artifacts directory and
// proactively revalidates and invalidates the cache when manifest.json or
// catalog.json change on disk, instead of waiting for the next request's
// lazy revalidation. It returns once the watcher is established; the
// watch loop runs until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.artifactsDir); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleWatchEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("artifact watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (s *Store) handleWatchEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	base := filepath.Base(event.Name)
	if base != "manifest.json" && base != "catalog.json" {
		return
	}
	if err := s.ensureFresh(); err != nil {
		s.logger.Warn("artifact revalidation after fs event failed", "error", err)
		return
	}
	s.cache.InvalidateLayer(cache.LayerWarm)
	s.cache.InvalidateLayer(cache.LayerHot)
	s.logger.Info("artifacts changed on disk, cache invalidated", "file", base)
}

// Close stops the filesystem watcher, if one was started.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
