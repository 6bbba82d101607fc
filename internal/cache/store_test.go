package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"adeploy/internal/deploy"
)

func TestFileName(t *testing.T) {
	got := FileName("/etc/ai-deploy/prod.json")
	want := "/etc/ai-deploy/.deploy_cache_prod.json"
	if got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}

func TestStore_Load_missingFileIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "config.json"))

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Files) != 0 {
		t.Errorf("Files = %v, want empty", doc.Files)
	}
}

func TestStore_SaveThenLoad_roundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "config.json"))

	doc := deploy.NewCacheDocument()
	doc.Files["a/b.txt"] = deploy.CachedFile{
		Size:       10,
		ModTime:    time.Unix(1700000000, 0).UTC(),
		DeployedAt: time.Unix(1700000100, 0).UTC(),
	}
	doc.LastDeployment = time.Unix(1700000100, 0).UTC()

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	entry, ok := got.Files["a/b.txt"]
	if !ok {
		t.Fatalf("Files missing a/b.txt")
	}
	if entry.Size != 10 || !entry.ModTime.Equal(doc.Files["a/b.txt"].ModTime) {
		t.Errorf("entry = %+v, want size 10 and matching mtime", entry)
	}
}

func TestStore_Exists(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "config.json"))

	if s.Exists() {
		t.Error("Exists() should be false before any Save")
	}
	if err := s.Save(deploy.NewCacheDocument()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Exists() {
		t.Error("Exists() should be true after Save")
	}
}

func TestStore_Save_isAtomic(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	s := NewStore(cfgPath)

	doc := deploy.NewCacheDocument()
	doc.Files["x"] = deploy.CachedFile{Size: 1}
	if err := s.Save(doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if e.Name() != filepath.Base(s.Path()) {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}
