package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"adeploy/internal/config"
	"adeploy/internal/deploy"
	"adeploy/internal/testutil"
)

func TestBuildEndpoint_windowsShare(t *testing.T) {
	ep, err := buildEndpoint(config.EndpointConfig{Type: "windows_share", Path: "/srv/share"}, 4)
	if err != nil {
		t.Fatalf("buildEndpoint() error = %v", err)
	}
	if ep.Kind() != deploy.KindWindowsShare {
		t.Errorf("Kind() = %v, want %v", ep.Kind(), deploy.KindWindowsShare)
	}
	if ep.Root() != "/srv/share" {
		t.Errorf("Root() = %q, want %q", ep.Root(), "/srv/share")
	}
}

func TestBuildEndpoint_ssh(t *testing.T) {
	ep, err := buildEndpoint(config.EndpointConfig{
		Type:     "ssh",
		Path:     "/var/www",
		Host:     "example.com",
		Username: "deploy",
	}, 4)
	if err != nil {
		t.Fatalf("buildEndpoint() error = %v", err)
	}
	if ep.Kind() != deploy.KindSSH {
		t.Errorf("Kind() = %v, want %v", ep.Kind(), deploy.KindSSH)
	}
}

func TestBuildEndpoint_unknownTypeIsConfigurationError(t *testing.T) {
	_, err := buildEndpoint(config.EndpointConfig{Type: "ftp"}, 4)
	if err == nil {
		t.Fatal("expected error for unknown endpoint type")
	}
	var cfgErr *deploy.ConfigurationError
	if !asConfigurationError(err, &cfgErr) {
		t.Fatalf("error = %v, want *deploy.ConfigurationError", err)
	}
}

func asConfigurationError(err error, target **deploy.ConfigurationError) bool {
	ce, ok := err.(*deploy.ConfigurationError)
	if !ok {
		return false
	}
	*target = ce
	return true
}

func TestApp_syncOptions_mapsFromConfig(t *testing.T) {
	deleteExtra := true
	a := &App{cfg: &config.Document{
		Options: config.OptionsConfig{
			DryRun:                 true,
			DeleteExtraFiles:       &deleteExtra,
			IgnoreCache:            true,
			CleanInstall:           true,
			MaxConcurrentTransfers: 7,
		},
	}}

	opts := a.syncOptions()
	if opts.MaxConcurrentTransfers != 7 {
		t.Errorf("MaxConcurrentTransfers = %d, want 7", opts.MaxConcurrentTransfers)
	}
	if !opts.DeleteExtraFiles || !opts.DryRun || !opts.IgnoreCache || !opts.CleanInstall {
		t.Errorf("syncOptions() did not carry every flag through: %+v", opts)
	}
}

func TestApp_runPreBuild_skipsWhenWatchPathUnchanged(t *testing.T) {
	dir := t.TempDir()
	watchPath := filepath.Join(dir, "marker")
	if err := os.WriteFile(watchPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(watchPath)
	if err != nil {
		t.Fatal(err)
	}

	ran := false
	a := &App{
		cfg: &config.Document{
			PreBuildCommand:   "touch " + filepath.Join(dir, "ran"),
			PreBuildWatchPath: watchPath,
		},
		logger: deploy.NewNopLogger(),
	}
	cacheDoc := &deploy.CacheDocument{Prebuild: map[string]time.Time{watchPath: info.ModTime()}}

	if err := a.runPreBuild(cacheDoc); err != nil {
		t.Fatalf("runPreBuild() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ran")); err == nil {
		ran = true
	}
	if ran {
		t.Error("pre-build command ran even though the watch path was unchanged")
	}
}

func TestApp_runPreBuild_runsWhenWatchPathChanged(t *testing.T) {
	dir := t.TempDir()
	watchPath := filepath.Join(dir, "marker")
	if err := os.WriteFile(watchPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(dir, "ran")

	a := &App{
		cfg: &config.Document{
			PreBuildCommand:   "touch " + marker,
			PreBuildWatchPath: watchPath,
		},
		logger: deploy.NewNopLogger(),
	}
	cacheDoc := &deploy.CacheDocument{Prebuild: map[string]time.Time{}}

	if err := a.runPreBuild(cacheDoc); err != nil {
		t.Fatalf("runPreBuild() error = %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Error("pre-build command did not run despite an unseen watch path")
	}

	info, _ := os.Stat(watchPath)
	if !cacheDoc.Prebuild[watchPath].Equal(info.ModTime()) {
		t.Error("runPreBuild did not record the watch path's mtime on success")
	}
}

func TestApp_runPreBuild_noCommandIsNoop(t *testing.T) {
	a := &App{cfg: &config.Document{}, logger: deploy.NewNopLogger()}
	if err := a.runPreBuild(&deploy.CacheDocument{Prebuild: map[string]time.Time{}}); err != nil {
		t.Fatalf("runPreBuild() error = %v", err)
	}
}

func TestApp_runPreBuild_nonZeroExitAborts(t *testing.T) {
	a := &App{
		cfg:    &config.Document{PreBuildCommand: "exit 1"},
		logger: deploy.NewNopLogger(),
	}
	if err := a.runPreBuild(&deploy.CacheDocument{Prebuild: map[string]time.Time{}}); err == nil {
		t.Fatal("expected error from a failing pre-build command")
	}
}

func TestApp_runPermissionsScript_sshUsesShell(t *testing.T) {
	var ranCommand string
	dest := testutil.NewMemEndpoint(deploy.KindSSH, "/var/www")
	dest.ShellFunc = func(ctx context.Context, command string) (string, string, error) {
		ranCommand = command
		return "", "", nil
	}

	a := &App{
		cfg:         &config.Document{SetPermissionsScript: "chown -R www-data /var/www"},
		destination: dest,
		logger:      deploy.NewNopLogger(),
	}
	a.runPermissionsScript(context.Background())

	if ranCommand != "chown -R www-data /var/www" {
		t.Errorf("ranCommand = %q, want the configured script", ranCommand)
	}
}

func TestApp_runPermissionsScript_noneConfiguredIsNoop(t *testing.T) {
	dest := testutil.NewMemEndpoint(deploy.KindSSH, "/var/www")
	dest.ShellFunc = func(ctx context.Context, command string) (string, string, error) {
		t.Fatal("Shell should not be called when no script is configured")
		return "", "", nil
	}
	a := &App{cfg: &config.Document{}, destination: dest, logger: deploy.NewNopLogger()}
	a.runPermissionsScript(context.Background())
}

func TestApp_runDatabase_noopWhenNothingConfigured(t *testing.T) {
	a := &App{cfg: &config.Document{}, logger: deploy.NewNopLogger()}
	if err := a.runDatabase(context.Background(), &deploy.CacheDocument{DBScripts: map[string]deploy.CachedScript{}}); err != nil {
		t.Fatalf("runDatabase() error = %v, want nil for an unconfigured database", err)
	}
}
