package sqlexec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"adeploy/internal/deploy"
	"adeploy/internal/template"
)

// dbExecer is the narrow slice of *sql.DB the executor needs. Tests
// substitute a recording fake instead of a live connection.
type dbExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) error
}

// RunOptions mirrors the subset of the configured options that change the
// executor's behavior.
type RunOptions struct {
	IgnoreCache  bool
	CleanInstall bool
}

// Executor drives a Plan's phases against a tunneled database connection.
type Executor struct {
	DB        dbExecer
	Templates template.Expander
	Logger    deploy.Logger
	Clock     deploy.Clock
}

// RunPlan executes every phase in order. On clean_install it drops every
// database the plan will touch before phase 1 runs. A SqlError aborts the
// containing file, the containing phase, and every phase after it — per
// the fatality rule, a partially applied schema never silently continues
// into later phases built on top of it.
func (e *Executor) RunPlan(ctx context.Context, plan *Plan, cacheDoc *deploy.CacheDocument, opts RunOptions) error {
	if opts.CleanInstall {
		for _, name := range plan.DatabaseNames() {
			if err := e.DB.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name)); err != nil {
				return &deploy.SqlError{File: "<clean_install drop>", Err: err}
			}
		}
	}

	currentDB := ""
	for _, phase := range plan.Phases {
		if !phase.OwnUse && phase.DBName != currentDB {
			if err := e.useDatabase(ctx, phase.DBName); err != nil {
				return err
			}
			currentDB = phase.DBName
		}

		if err := e.runDirectory(ctx, phase, cacheDoc, opts); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) useDatabase(ctx context.Context, name string) error {
	if err := e.DB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
		return &deploy.SqlError{File: "<create database>", Err: err}
	}
	if err := e.DB.ExecContext(ctx, fmt.Sprintf("USE `%s`", name)); err != nil {
		return &deploy.SqlError{File: "<use database>", Err: err}
	}
	return nil
}

func (e *Executor) runDirectory(ctx context.Context, phase Phase, cacheDoc *deploy.CacheDocument, opts RunOptions) error {
	entries, err := os.ReadDir(phase.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &deploy.SqlError{File: phase.Dir, Err: fmt.Errorf("listing phase directory: %w", err)}
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.EqualFold(filepath.Ext(ent.Name()), ".sql") {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(phase.Dir, name)
		if err := e.runFile(ctx, path, phase, cacheDoc, opts); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) runFile(ctx context.Context, path string, phase Phase, cacheDoc *deploy.CacheDocument, opts RunOptions) error {
	info, err := os.Stat(path)
	if err != nil {
		return &deploy.SqlError{File: path, Err: err}
	}

	if !opts.IgnoreCache && !opts.CleanInstall {
		if cached, ok := cacheDoc.DBScripts[path]; ok && cached.ModTime.Equal(info.ModTime()) {
			e.logf("sql script unchanged, skipping", "file", path)
			return nil
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return &deploy.SqlError{File: path, Err: err}
	}

	expanded := e.Templates(raw, phase.Tenant.WebID, phase.PerTenant)
	statements := SplitStatements(expanded)

	for _, stmt := range statements {
		if err := e.DB.ExecContext(ctx, stmt); err != nil {
			return &deploy.SqlError{File: path, Statement: stmt, Err: err}
		}
	}

	cacheDoc.DBScripts[path] = deploy.CachedScript{ModTime: info.ModTime(), ExecutedAt: e.Clock.Now()}
	e.logf("executed sql script", "file", path, "statements", len(statements))
	return nil
}

func (e *Executor) logf(msg string, args ...any) {
	if e.Logger == nil {
		return
	}
	e.Logger.Info(msg, args...)
}
