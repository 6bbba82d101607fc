package deploy

import "time"

// CacheDocument is the persistent trust layer for incremental runs,
// serialized as JSON beside the configuration file. It is the single
// source of truth the sync engine trusts in place of a real destination
// listing once a prior run has populated it.
type CacheDocument struct {
	Files          map[string]CachedFile  `json:"files"`
	LastDeployment time.Time              `json:"last_deployment"`
	DBScripts      map[string]CachedScript `json:"db_scripts"`
	FileMappings   map[string]time.Time   `json:"file_mappings"`
	Prebuild       map[string]time.Time   `json:"prebuild"`
}

// NewCacheDocument returns an empty, ready-to-use document.
func NewCacheDocument() *CacheDocument {
	return &CacheDocument{
		Files:        make(map[string]CachedFile),
		DBScripts:    make(map[string]CachedScript),
		FileMappings: make(map[string]time.Time),
		Prebuild:     make(map[string]time.Time),
	}
}

// CachedFile is the trust-cache entry for one relative path.
type CachedFile struct {
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mtime"`
	DeployedAt time.Time `json:"deployed_at"`
}

// CachedScript is the trust-cache entry for one absolute SQL script path.
type CachedScript struct {
	ModTime    time.Time `json:"mtime"`
	ExecutedAt time.Time `json:"executed_at"`
}
