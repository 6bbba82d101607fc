package sync

import (
	"context"
	"path/filepath"
	"strings"

	"adeploy/internal/config"
	"adeploy/internal/deploy"
)

// ApplyMappings runs the ordered file-mapping overlay after the main
// plan: each mapping bypasses the ignore matcher, is skipped when the
// cache's file_mappings entry is still current, and may overwrite a
// destination file the main plan just wrote.
//
// Absolute mapping sources against an SSH source are Open Question 1
// from the configuration document (spec.md §9): whether the path is
// endpoint-root-relative or meant literally on the remote host is
// ambiguous, so rather than guess this returns a ConfigurationError.
// Absolute sources against a local/UNC source are resolved relative to
// the source root when they fall under it.
func (e *Engine) ApplyMappings(ctx context.Context, mappings []config.FileMapping, cacheDoc *deploy.CacheDocument) error {
	for _, m := range mappings {
		relSource, err := e.resolveMappingSource(m.Source)
		if err != nil {
			return err
		}

		if e.Options.DryRun {
			e.logf("would map %s -> %s", relSource, m.Destination)
			continue
		}

		src, err := e.Source.Stat(ctx, relSource)
		if err != nil {
			return err
		}

		if prev, ok := cacheDoc.FileMappings[m.Destination]; ok && prev.Equal(src.ModTime) {
			e.logf("skipping unchanged mapping %s -> %s", relSource, m.Destination)
			continue
		}

		rc, err := e.Source.Read(ctx, relSource)
		if err != nil {
			return err
		}
		err = e.Destination.Write(ctx, m.Destination, rc, src.ModTime)
		rc.Close()
		if err != nil {
			return err
		}

		cacheDoc.FileMappings[m.Destination] = src.ModTime
		e.logf("mapped %s -> %s", relSource, m.Destination)
	}
	return nil
}

func (e *Engine) resolveMappingSource(source string) (string, error) {
	if !filepath.IsAbs(source) {
		return filepath.ToSlash(source), nil
	}

	if e.Source.Kind() == deploy.KindSSH {
		return "", &deploy.ConfigurationError{
			Field: "file_mappings",
			Err:   errAmbiguousAbsoluteMapping,
		}
	}

	rel, err := filepath.Rel(e.Source.Root(), source)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", &deploy.ConfigurationError{
			Field: "file_mappings",
			Err:   errAbsoluteMappingOutsideRoot,
		}
	}
	return filepath.ToSlash(rel), nil
}
