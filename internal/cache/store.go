// Package cache implements the persistent trust layer described by the
// engine's data model: a single JSON document, read once at the start of a
// run, mutated in memory, and atomically rewritten at the end of a
// successful run. The atomic-replace idiom — write to a sibling temp file,
// then rename over the real path — follows the same shape the teacher
// repository uses for its content-addressed vault writes.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adeploy/internal/deploy"
)

// Store loads and saves a deploy.CacheDocument for one configuration file.
type Store struct {
	path string
}

// FileName derives the cache file name for a given configuration file
// path: ".deploy_cache_<config-stem>.json" next to the configuration file.
func FileName(configPath string) string {
	dir := filepath.Dir(configPath)
	stem := strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	return filepath.Join(dir, fmt.Sprintf(".deploy_cache_%s.json", stem))
}

// NewStore creates a Store bound to the cache file derived from
// configPath.
func NewStore(configPath string) *Store {
	return &Store{path: FileName(configPath)}
}

// Load reads the cache document from disk. A missing file is not an
// error — it returns an empty document, per the engine's CacheError
// policy ("no cache, do full comparison").
func (s *Store) Load() (*deploy.CacheDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return deploy.NewCacheDocument(), nil
		}
		return deploy.NewCacheDocument(), &deploy.CacheError{Op: "load", Err: err}
	}

	doc := deploy.NewCacheDocument()
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return deploy.NewCacheDocument(), &deploy.CacheError{Op: "load", Err: err}
	}
	if doc.Files == nil {
		doc.Files = make(map[string]deploy.CachedFile)
	}
	if doc.DBScripts == nil {
		doc.DBScripts = make(map[string]deploy.CachedScript)
	}
	if doc.FileMappings == nil {
		doc.FileMappings = make(map[string]time.Time)
	}
	if doc.Prebuild == nil {
		doc.Prebuild = make(map[string]time.Time)
	}
	return doc, nil
}

// Save writes the document to a sibling temp file and renames it over the
// real cache path, so a crash mid-write never corrupts the previous cache.
func (s *Store) Save(doc *deploy.CacheDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &deploy.CacheError{Op: "save", Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &deploy.CacheError{Op: "save", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".deploy_cache_tmp_*")
	if err != nil {
		return &deploy.CacheError{Op: "save", Err: err}
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &deploy.CacheError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &deploy.CacheError{Op: "save", Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return &deploy.CacheError{Op: "save", Err: err}
	}

	success = true
	return nil
}

// Path returns the on-disk location of the cache file.
func (s *Store) Path() string { return s.path }

// Exists reports whether a cache file is already on disk, distinguishing
// "no prior cache" from "prior cache happened to be empty" for the sync
// engine's conditional destination listing.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
