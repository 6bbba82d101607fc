package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"adeploy/internal/deploy"
)

// Execute transfers every create/update in plan, then runs deletes
// single-threaded, then reaps any destination directory left empty by
// those deletes. A failed transfer does not stop the other transfers or
// the deletes; the transfer errors are returned together, joined, once
// the plan has run. cacheDoc is mutated in place with the new per-path
// entries; callers must not persist it until Execute returns nil.
//
// In dry-run mode no endpoint call is made and cacheDoc is left
// untouched — Execute only logs what it would have done.
func (e *Engine) Execute(ctx context.Context, plan *deploy.SyncPlan, cacheDoc *deploy.CacheDocument) (Result, error) {
	var result Result

	transfers := append(append([]deploy.FileRecord{}, plan.Creates()...), plan.Updates()...)
	creating := make(map[string]bool, len(plan.Creates()))
	for _, rec := range plan.Creates() {
		creating[rec.RelPath] = true
	}

	if e.Options.DryRun {
		for _, rec := range transfers {
			if creating[rec.RelPath] {
				e.logf("would create %s", rec.RelPath)
				result.Created++
			} else {
				e.logf("would update %s", rec.RelPath)
				result.Updated++
			}
		}
		for _, rec := range plan.Deletes() {
			e.logf("would delete %s", rec.RelPath)
			result.Deleted++
		}
		return result, nil
	}

	limit := 1
	if e.Source.Kind() == deploy.KindSSH || e.Destination.Kind() == deploy.KindSSH {
		limit = e.Options.MaxConcurrentTransfers
		if limit < 1 {
			limit = 1
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	var transferErrs []error
	for _, rec := range transfers {
		rec := rec
		g.Go(func() error {
			if err := e.transferOne(gctx, rec); err != nil {
				mu.Lock()
				transferErrs = append(transferErrs, err)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			cacheDoc.Files[rec.RelPath] = deploy.CachedFile{
				Size:       rec.Size,
				ModTime:    rec.ModTime,
				DeployedAt: e.Clock.Now(),
			}
			if creating[rec.RelPath] {
				result.Created++
			} else {
				result.Updated++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	deletes := append([]deploy.FileRecord(nil), plan.Deletes()...)
	sort.Slice(deletes, func(i, j int) bool {
		return strings.Count(deletes[i].RelPath, "/") > strings.Count(deletes[j].RelPath, "/")
	})

	remaining := make(map[string]bool)
	if e.Options.DeleteExtraFiles && len(deletes) > 0 {
		left, err := e.Destination.List(ctx)
		if err != nil {
			return result, err
		}
		for _, rec := range left {
			remaining[rec.RelPath] = true
		}
	}
	for _, rec := range deletes {
		delete(remaining, rec.RelPath)
	}

	for _, rec := range deletes {
		if err := e.Destination.DeleteFile(ctx, rec.RelPath); err != nil {
			return result, err
		}
		delete(cacheDoc.Files, rec.RelPath)
		result.Deleted++
	}

	if e.Options.DeleteExtraFiles {
		e.reapEmptyDirs(ctx, deletes, remaining)
	}

	if len(transferErrs) > 0 {
		return result, errors.Join(transferErrs...)
	}
	return result, nil
}

func (e *Engine) transferOne(ctx context.Context, rec deploy.FileRecord) error {
	rc, err := e.Source.Read(ctx, rec.RelPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := e.Destination.Write(ctx, rec.RelPath, rc, rec.ModTime); err != nil {
		return err
	}
	e.logf("transferred %s", rec.RelPath)
	return nil
}

// reapEmptyDirs deletes any directory implied by the deleted files'
// ancestors that no longer has a descendant among the files still on the
// destination (listed before the deletes, minus the deleted files).
// Deepest directories are checked first so a
// parent is only reaped once its children already are.
func (e *Engine) reapEmptyDirs(ctx context.Context, deletes []deploy.FileRecord, remaining map[string]bool) {
	dirSet := make(map[string]bool)
	for _, rec := range deletes {
		for _, anc := range ancestorDirs(rec.RelPath) {
			dirSet[anc] = true
		}
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], "/") > strings.Count(dirs[j], "/")
	})

	for _, dir := range dirs {
		empty := true
		prefix := dir + "/"
		for path := range remaining {
			if strings.HasPrefix(path, prefix) {
				empty = false
				break
			}
		}
		if empty {
			if err := e.Destination.DeleteDir(ctx, dir); err != nil {
				e.logf("reaping %s failed: %v", dir, err)
				continue
			}
			e.logf("reaped empty directory %s", dir)
		}
	}
}

// ancestorDirs returns every directory ancestor of relPath, nearest
// first, not including relPath itself.
func ancestorDirs(relPath string) []string {
	var dirs []string
	for {
		idx := strings.LastIndex(relPath, "/")
		if idx < 0 {
			break
		}
		relPath = relPath[:idx]
		dirs = append(dirs, relPath)
	}
	return dirs
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger == nil {
		return
	}
	e.Logger.Info(fmt.Sprintf(format, args...))
}
