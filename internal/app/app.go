package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"

	"adeploy/internal/cache"
	"adeploy/internal/config"
	"adeploy/internal/deploy"
	"adeploy/internal/endpoint"
	"adeploy/internal/ignore"
	"adeploy/internal/seed"
	"adeploy/internal/sqlexec"
	"adeploy/internal/sync"
	"adeploy/internal/template"
)

// App is the application layer between the CLI and the engine's
// packages. It constructs every dependency from a loaded configuration
// document and exposes the single Run entry point that carries out one
// full deployment.
type App struct {
	cfg         *config.Document
	configPath  string
	source      deploy.Endpoint
	destination deploy.Endpoint
	ignore      *ignore.Matcher
	cacheStore  *cache.Store
	logger      deploy.Logger
	logFile     *os.File
	clock       deploy.Clock
}

// Build wires a fully constructed App from a validated configuration
// document. The caller must eventually call Run, which closes every
// acquired resource on every exit path.
func Build(cfg *config.Document, configPath string) (*App, error) {
	logDir := filepath.Join(filepath.Dir(configPath), "logs")
	runID := deploy.UUIDGenerator{}.New()
	logger, logFile, err := newLogger(logDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	maxConcurrent := cfg.Options.MaxConcurrentTransfersOrDefault()

	source, err := buildEndpoint(cfg.Source, maxConcurrent)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	destination, err := buildEndpoint(cfg.Destination, maxConcurrent)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	// Open Question 3 (spec.md §9): Windows paths fold case, everything
	// else is case-sensitive. A windows_share source is the signal.
	caseFold := cfg.Source.Type == "windows_share"
	matcher := ignore.New(cfg.Ignore.Files, cfg.Ignore.Folders, cfg.Ignore.Extensions, caseFold)

	return &App{
		cfg:         cfg,
		configPath:  configPath,
		source:      source,
		destination: destination,
		ignore:      matcher,
		cacheStore:  cache.NewStore(configPath),
		logger:      &slogAdapter{l: logger},
		logFile:     logFile,
		clock:       deploy.RealClock{},
	}, nil
}

func buildEndpoint(ec config.EndpointConfig, maxConcurrent int) (deploy.Endpoint, error) {
	switch ec.Type {
	case "windows_share":
		return endpoint.NewLocal(ec.Path), nil
	case "ssh":
		return endpoint.NewRemote(ec.Host, ec.SSHPortOrDefault(), ec.Username, ec.SSHPassword, ec.PrivateKeyFile, ec.Path, maxConcurrent), nil
	default:
		return nil, &deploy.ConfigurationError{Field: "type", Err: fmt.Errorf("unknown endpoint type %q", ec.Type)}
	}
}

// Run executes one full deployment in the order the control flow fixes:
// open endpoints, run the pre-build gate, wipe the destination tree on a
// clean install, sync files, apply file mappings, provision and seed the
// database, write the cache, and finally run the permissions script.
// Every acquired resource is closed regardless of which step fails.
func (a *App) Run(ctx context.Context) error {
	defer a.logFile.Close()

	if err := a.source.Open(ctx); err != nil {
		return &deploy.EndpointError{Endpoint: "source", Err: err}
	}
	defer a.source.Close()

	if err := a.destination.Open(ctx); err != nil {
		return &deploy.EndpointError{Endpoint: "destination", Err: err}
	}
	defer a.destination.Close()

	cacheDoc, err := a.cacheStore.Load()
	if err != nil {
		a.logger.Warn("cache load failed, treating as no prior cache", "err", err)
	}
	cacheExists := a.cacheStore.Exists()

	if err := a.runPreBuild(cacheDoc); err != nil {
		return err
	}

	engine := &sync.Engine{
		Source:      a.source,
		Destination: a.destination,
		Ignore:      a.ignore,
		Options:     a.syncOptions(),
		Logger:      a.logger,
		Clock:       a.clock,
	}

	if err := engine.WipeDestination(ctx); err != nil {
		return &deploy.EndpointError{Endpoint: "destination", Err: err}
	}

	plan, _, err := engine.Plan(ctx, cacheDoc, cacheExists)
	if err != nil {
		return err
	}

	if _, err := engine.Execute(ctx, plan, cacheDoc); err != nil {
		return err
	}

	if err := engine.ApplyMappings(ctx, a.cfg.FileMappings, cacheDoc); err != nil {
		return err
	}

	if err := a.runDatabase(ctx, cacheDoc); err != nil {
		return err
	}

	if err := a.cacheStore.Save(cacheDoc); err != nil {
		a.logger.Error("writing cache failed", "err", err)
	}

	a.runPermissionsScript(ctx)

	return nil
}

func (a *App) syncOptions() sync.Options {
	o := a.cfg.Options
	return sync.Options{
		MaxConcurrentTransfers: o.MaxConcurrentTransfersOrDefault(),
		DeleteExtraFiles:       o.DeleteExtraFilesOrDefault(),
		DryRun:                 o.DryRun,
		IgnoreCache:            o.IgnoreCache,
		CleanInstall:           o.CleanInstall,
	}
}

// runPreBuild implements the optional local pre-build command gate
// (Supplemented Features): skip when the watched source path's mtime
// matches the cache, otherwise run the command and update the cache
// entry only on a clean exit.
func (a *App) runPreBuild(cacheDoc *deploy.CacheDocument) error {
	if a.cfg.PreBuildCommand == "" {
		return nil
	}

	watchPath := a.cfg.PreBuildWatchPath
	if watchPath != "" {
		if info, statErr := os.Stat(watchPath); statErr == nil {
			if prev, ok := cacheDoc.Prebuild[watchPath]; ok && prev.Equal(info.ModTime()) {
				a.logger.Info("pre-build watch path unchanged, skipping", "path", watchPath)
				return nil
			}
		}
	}

	a.logger.Info("running pre-build command", "command", a.cfg.PreBuildCommand)
	cmd := exec.Command("sh", "-c", a.cfg.PreBuildCommand)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pre-build command failed: %w", err)
	}

	if watchPath != "" {
		if info, statErr := os.Stat(watchPath); statErr == nil {
			cacheDoc.Prebuild[watchPath] = info.ModTime()
		}
	}
	return nil
}

// runPermissionsScript fires the post-deploy ownership/permissions fixup
// after the cache write is attempted, whether or not that write
// succeeded. It logs but never fails the run, per
// the original's fire-and-log behavior.
func (a *App) runPermissionsScript(ctx context.Context) {
	if a.cfg.SetPermissionsScript == "" {
		return
	}

	if a.destination.Kind() == deploy.KindSSH {
		stdout, stderr, err := a.destination.Shell(ctx, a.cfg.SetPermissionsScript)
		if err != nil {
			a.logger.Warn("permissions script failed", "err", err, "stdout", stdout, "stderr", stderr)
		}
		return
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", a.cfg.SetPermissionsScript)
	if err := cmd.Run(); err != nil {
		a.logger.Warn("permissions script failed", "err", err)
	}
}

// runDatabase provisions the schema via the SQL executor and then seeds
// every configured table. It is a no-op when no database is configured
// at all.
func (a *App) runDatabase(ctx context.Context, cacheDoc *deploy.CacheDocument) error {
	dbCfg := a.cfg.Database
	if dbCfg.Main.DBName == "" && dbCfg.TenantDatabase.DBName == "" {
		return nil
	}

	db, cleanup, err := a.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var tenants []deploy.Tenant
	if dbCfg.TenantConfigFilesPath != "" {
		tenants, err = deploy.LoadTenants(dbCfg.TenantConfigFilesPath)
		if err != nil {
			return err
		}
	}

	expander := template.ExpandSQL(a.cfg.ApplicationName)

	plan := sqlexec.BuildPlan(dbCfg, tenants, a.cfg.Options.MigrationOnly, a.cfg.ApplicationName)
	executor := &sqlexec.Executor{
		DB:        &sqlExecAdapter{db: db},
		Templates: expander,
		Logger:    a.logger,
		Clock:     a.clock,
	}
	if err := executor.RunPlan(ctx, plan, cacheDoc, sqlexec.RunOptions{
		IgnoreCache:  a.cfg.Options.IgnoreCache,
		CleanInstall: a.cfg.Options.CleanInstall,
	}); err != nil {
		return err
	}

	if a.cfg.Options.MigrationOnly {
		return nil
	}

	seedEngine := &seed.Engine{
		DB:        &seedDBAdapter{db: db},
		Templates: expander,
		Logger:    a.logger,
	}

	var seedErrs []error
	for _, spec := range dbCfg.SeedTables {
		if err := seedEngine.Run(ctx, spec, tenants); err != nil {
			a.logger.Error("seed spec failed, continuing with remaining specs", "table", spec.Table, "err", err)
			seedErrs = append(seedErrs, err)
		}
	}
	if len(seedErrs) > 0 {
		return errors.Join(seedErrs...)
	}
	return nil
}

// openDatabase returns a live *sql.DB and a cleanup func. When the
// destination is remote it tunnels through the same *ssh.Client the
// destination endpoint holds, per the shared-session design.
func (a *App) openDatabase(ctx context.Context) (*sql.DB, func(), error) {
	dbCfg := a.cfg.Database

	var tunnel *sqlexec.Tunnel
	var dsn string

	if a.destination.Kind() == deploy.KindSSH {
		remote, ok := a.destination.(*endpoint.Remote)
		if !ok {
			return nil, nil, &deploy.ConfigurationError{Err: fmt.Errorf("ssh destination does not expose a tunnelable client")}
		}
		tunnel = sqlexec.NewTunnel(remote.ClientForTunnel(), dbCfg.HostOrDefault(), dbCfg.PortOrDefault())
		if err := tunnel.Open(ctx); err != nil {
			return nil, nil, &deploy.EndpointError{Endpoint: "db-tunnel", Err: err}
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s)/", dbCfg.AdminUsername, dbCfg.AdminPassword, tunnel.LocalAddr())
	} else {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/", dbCfg.AdminUsername, dbCfg.AdminPassword, dbCfg.HostOrDefault(), dbCfg.PortOrDefault())
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		if tunnel != nil {
			tunnel.Close()
		}
		return nil, nil, &deploy.EndpointError{Endpoint: "database", Err: err}
	}

	cleanup := func() {
		db.Close()
		if tunnel != nil {
			tunnel.Close()
		}
	}
	return db, cleanup, nil
}

// sqlExecAdapter narrows *sql.DB to the single-statement executor the
// SQL script runner needs.
type sqlExecAdapter struct{ db *sql.DB }

func (a *sqlExecAdapter) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := a.db.ExecContext(ctx, query, args...)
	return err
}

// seedDBAdapter narrows *sql.DB to the exec-and-count pair the seed
// engine needs for INSERTs and existence checks.
type seedDBAdapter struct{ db *sql.DB }

func (a *seedDBAdapter) ExecContext(ctx context.Context, query string) error {
	_, err := a.db.ExecContext(ctx, query)
	return err
}

func (a *seedDBAdapter) CountContext(ctx context.Context, query string) (int, error) {
	var count int
	if err := a.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
