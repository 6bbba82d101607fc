package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"adeploy/internal/config"
	"adeploy/internal/deploy"
	"adeploy/internal/template"
)

// DB is the narrow slice of *sql.DB the seed engine needs: statement
// execution and the single-row count the existence check runs.
type DB interface {
	ExecContext(ctx context.Context, query string) error
	CountContext(ctx context.Context, query string) (int, error)
}

// Engine seeds one table spec's worth of JSON fixtures into the
// destination database.
type Engine struct {
	DB        DB
	Templates template.Expander
	Logger    deploy.Logger
}

// Run implements the table spec's seeding rules end to end: sorted JSON
// iteration, existence-check skip, array expansion, per-binding
// resolution, and tenant routing. A SeedError aborts only this spec;
// the caller is expected to continue with the next one.
func (e *Engine) Run(ctx context.Context, spec config.SeedTableSpec, tenants []deploy.Tenant) error {
	rawScript, err := os.ReadFile(spec.TableScriptFile)
	if err != nil {
		return &deploy.SeedError{Spec: spec.Table, Err: fmt.Errorf("reading table script file: %w", err)}
	}
	insertTemplate, err := extractBetween(string(rawScript), spec.BeginMark, spec.EndMark)
	if err != nil {
		return &deploy.SeedError{Spec: spec.Table, Err: err}
	}

	names, err := sortedConfigFiles(spec.ConfigFilesPath, spec.ConfigFilesExtensionOrDefault())
	if err != nil {
		return &deploy.SeedError{Spec: spec.Table, Err: err}
	}

	tenantScoped := spec.DatabaseScopeOrDefault() == "tenant"
	targets := []deploy.Tenant{{}}
	if tenantScoped {
		targets = tenants
	}

	for _, name := range names {
		path := filepath.Join(spec.ConfigFilesPath, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return &deploy.SeedError{Spec: spec.Table, Err: fmt.Errorf("reading %s: %w", path, err)}
		}

		var parent map[string]any
		if err := json.Unmarshal(raw, &parent); err != nil {
			return &deploy.SeedError{Spec: spec.Table, Err: fmt.Errorf("decoding %s: %w", path, err)}
		}

		if spec.CheckExistsQuery != "" {
			skip, err := e.checkExists(ctx, spec, parent)
			if err != nil {
				return &deploy.SeedError{Spec: spec.Table, Err: err}
			}
			if skip {
				e.logf("seed row already present, skipping parent file", "table", spec.Table, "file", path)
				continue
			}
		}

		for _, em := range buildEmissions(parent, spec) {
			insertSQL, err := substituteBindings(insertTemplate, spec.Variables, em, true)
			if err != nil {
				return &deploy.SeedError{Spec: spec.Table, Err: err}
			}

			for _, tenant := range targets {
				expanded := e.Templates([]byte(insertSQL), tenant.WebID, tenantScoped)
				if err := e.DB.ExecContext(ctx, string(expanded)); err != nil {
					return &deploy.SeedError{Spec: spec.Table, Err: fmt.Errorf("inserting from %s: %w", path, err)}
				}
			}
		}
	}

	return nil
}

func (e *Engine) checkExists(ctx context.Context, spec config.SeedTableSpec, parent map[string]any) (bool, error) {
	query, err := substituteBindings(spec.CheckExistsQuery, spec.Variables, emissionContext{levels: []any{parent}}, false)
	if err != nil {
		return false, err
	}
	count, err := e.DB.CountContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("running check_exists_query: %w", err)
	}
	return count >= 1, nil
}

func (e *Engine) logf(msg string, args ...any) {
	if e.Logger == nil {
		return
	}
	e.Logger.Info(msg, args...)
}

// buildEmissions expands one parent JSON's array fields into the list of
// (parent, outer, inner) contexts the spec wants one INSERT per.
func buildEmissions(parent map[string]any, spec config.SeedTableSpec) []emissionContext {
	if spec.ArrayField == "" {
		return []emissionContext{{levels: []any{parent}}}
	}

	outerArr, ok := parent[spec.ArrayField].([]any)
	if !ok {
		return nil
	}

	if spec.NestedArrayField == "" {
		emissions := make([]emissionContext, 0, len(outerArr))
		for _, outer := range outerArr {
			emissions = append(emissions, emissionContext{levels: []any{parent, outer}})
		}
		return emissions
	}

	var emissions []emissionContext
	for _, outer := range outerArr {
		outerObj, ok := outer.(map[string]any)
		if !ok {
			continue
		}
		nestedArr, ok := outerObj[spec.NestedArrayField].([]any)
		if !ok {
			continue
		}
		for _, inner := range nestedArr {
			emissions = append(emissions, emissionContext{levels: []any{parent, outer, inner}})
		}
	}
	return emissions
}

// substituteBindings resolves every binding against ctx and replaces its
// placeholder in template. allowPasswordHashing gates the bcrypt special
// case — the existence-check query never hashes, since a plaintext
// comparison there would never match a stored hash anyway.
func substituteBindings(tmpl string, bindings []config.VariableBinding, ctx emissionContext, allowPasswordHashing bool) (string, error) {
	for _, b := range bindings {
		value, isNull := resolveBinding(b, ctx)

		if isNull {
			tmpl = strings.ReplaceAll(tmpl, "'"+b.Placeholder+"'", "NULL")
			tmpl = strings.ReplaceAll(tmpl, b.Placeholder, "NULL")
			continue
		}

		if allowPasswordHashing && passwordPlaceholders[b.Placeholder] {
			hashed, err := hashPassword(value)
			if err != nil {
				return "", fmt.Errorf("hashing %s: %w", b.Placeholder, err)
			}
			tmpl = strings.ReplaceAll(tmpl, b.Placeholder, hashed)
			continue
		}

		escaped := strings.ReplaceAll(value, "'", "''")
		tmpl = strings.ReplaceAll(tmpl, b.Placeholder, escaped)
	}
	return tmpl, nil
}

func extractBetween(s, begin, end string) (string, error) {
	startIdx := strings.Index(s, begin)
	if startIdx == -1 {
		return "", fmt.Errorf("begin_mark %q not found in table script file", begin)
	}
	startIdx += len(begin)

	endIdx := strings.Index(s[startIdx:], end)
	if endIdx == -1 {
		return "", fmt.Errorf("end_mark %q not found after begin_mark in table script file", end)
	}

	return strings.TrimSpace(s[startIdx : startIdx+endIdx]), nil
}

func sortedConfigFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing config_files_path %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
