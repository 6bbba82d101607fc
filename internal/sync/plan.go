// Package sync implements the incremental tree sync: listing, diffing
// against either a real destination listing or the trust cache, bounded
// parallel transfer, deletion, and file-mapping overlay. Grounded on
// bt-go/internal/bt/service.go's backup-run shape (list, diff against a
// prior manifest, transfer, record), generalized from "files changed
// since last backup" to "files that differ between two endpoints".
package sync

import (
	"context"
	"fmt"

	"adeploy/internal/deploy"
	"adeploy/internal/ignore"
)

// Engine ties a source and destination endpoint together with the
// ignore matcher and options that drive one sync run.
type Engine struct {
	Source      deploy.Endpoint
	Destination deploy.Endpoint
	Ignore      *ignore.Matcher
	Options     Options
	Logger      deploy.Logger
	Clock       deploy.Clock
}

// Plan lists the whole source tree and then drops the paths the ignore
// matcher rejects (ignored folders are still walked by the listing), reads
// either the destination or the prior cache's files map, then computes
// the disjoint creates/updates/deletes sets. usedFullListing reports
// whether a real destination listing happened, which callers need to
// decide whether the deletion set is trustworthy.
func (e *Engine) Plan(ctx context.Context, cacheDoc *deploy.CacheDocument, cacheExists bool) (*deploy.SyncPlan, bool, error) {
	sourceRecs, err := e.Source.List(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("listing source: %w", err)
	}

	filtered := make([]deploy.FileRecord, 0, len(sourceRecs))
	sourceSet := make(map[string]bool, len(sourceRecs))
	for _, rec := range sourceRecs {
		if e.Ignore != nil && e.Ignore.Match(rec.RelPath) {
			continue
		}
		filtered = append(filtered, rec)
		sourceSet[rec.RelPath] = true
	}

	fullListing := e.Options.IgnoreCache || e.Options.CleanInstall || !cacheExists

	destByPath := make(map[string]deploy.FileRecord)
	if fullListing {
		destRecs, err := e.Destination.List(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("listing destination: %w", err)
		}
		for _, rec := range destRecs {
			destByPath[rec.RelPath] = rec
		}
	} else {
		for relPath, cached := range cacheDoc.Files {
			destByPath[relPath] = deploy.FileRecord{RelPath: relPath, Size: cached.Size, ModTime: cached.ModTime}
		}
	}

	var creates, updates []deploy.FileRecord
	for _, s := range filtered {
		d, ok := destByPath[s.RelPath]
		switch {
		case !ok:
			creates = append(creates, s)
		case s.Size != d.Size || s.ModTime.After(d.ModTime):
			updates = append(updates, s)
		}
	}

	var deletes []deploy.FileRecord
	if fullListing && e.Options.DeleteExtraFiles {
		for relPath, d := range destByPath {
			if sourceSet[relPath] {
				continue
			}
			if e.Ignore != nil && e.Ignore.Match(relPath) {
				continue
			}
			deletes = append(deletes, d)
		}
	}

	return deploy.NewSyncPlan(creates, updates, deletes), fullListing, nil
}
