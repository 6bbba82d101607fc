package sync

import (
	"context"
	"strings"
)

// WipeDestination deletes every entry directly under the destination
// root, recursively, before the sync plan runs. clean_install fixes
// this as its file-side effect (spec.md §4.6/§9): a clean install starts
// from nothing, so the prior file tree is removed outright rather than
// reconciled against. dry_run suppresses the actual deletes and only
// logs what would be removed.
func (e *Engine) WipeDestination(ctx context.Context) error {
	if !e.Options.CleanInstall {
		return nil
	}

	recs, err := e.Destination.List(ctx)
	if err != nil {
		return err
	}

	seenDirs := make(map[string]bool)
	for _, rec := range recs {
		top, _, nested := strings.Cut(rec.RelPath, "/")
		if !nested {
			e.logf("clean install: removing destination file %s", rec.RelPath)
			if e.Options.DryRun {
				continue
			}
			if err := e.Destination.DeleteFile(ctx, rec.RelPath); err != nil {
				return err
			}
			continue
		}
		if seenDirs[top] {
			continue
		}
		seenDirs[top] = true
		e.logf("clean install: removing destination directory %s", top)
		if e.Options.DryRun {
			continue
		}
		if err := e.Destination.DeleteDir(ctx, top); err != nil {
			return err
		}
	}

	return nil
}
