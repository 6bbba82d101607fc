// Package config decodes the engine's configuration document. The wire
// format is JSON — spec.md §6 fixes this as the external, documented
// contract, so unlike the teacher repository's TOML config.go this package
// uses encoding/json — but it keeps the teacher's Manager/ReadFromFile
// shape (bt-go/internal/config/config.go) translated onto that format.
// Schema validation beyond "does it decode and have the required fields"
// is the out-of-scope external validator spec.md §1 names; this package
// only catches the handful of invariants the engine itself depends on
// (agent_name, mutually exclusive flags).
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"adeploy/internal/deploy"
	"adeploy/internal/template"
)

// Document is the full configuration document the orchestrator consumes.
type Document struct {
	AgentName             string         `json:"agent_name"`
	ApplicationName       string         `json:"application_name"`
	Description           string         `json:"description"`
	Warn                  string         `json:"warn"`
	Source                EndpointConfig `json:"source"`
	Destination           EndpointConfig `json:"destination"`
	Ignore                IgnoreConfig   `json:"ignore"`
	Options                OptionsConfig  `json:"options"`
	Website               string         `json:"website"`
	Database              DatabaseConfig `json:"database"`
	FileMappings          []FileMapping  `json:"file_mappings"`
	SetPermissionsScript  string         `json:"set_permissions_script"`
	PreBuildCommand       string         `json:"pre_build_command"`
	PreBuildWatchPath     string         `json:"pre_build_watch_path"`
}

// EndpointConfig describes one side of the file sync (source or
// destination). Type selects the concrete endpoint variant; the
// Windows-share user/password fields are documentation-only and never
// read by the local endpoint driver.
type EndpointConfig struct {
	Type string `json:"type"` // "windows_share" or "ssh"
	Path string `json:"path"`

	// windows_share-only, documentation only
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`

	// ssh-only
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"` // default 22
	Username       string `json:"username,omitempty"`
	SSHPassword    string `json:"ssh_password,omitempty"`
	PrivateKeyFile string `json:"private_key_file,omitempty"`
}

// IgnoreConfig seeds the three-tier ignore matcher.
type IgnoreConfig struct {
	Files      []string `json:"files"`
	Folders    []string `json:"folders"`
	Extensions []string `json:"extensions"`
}

// OptionsConfig controls the sync engine and SQL executor's behavior.
type OptionsConfig struct {
	DryRun                 bool  `json:"dry_run"`
	DeleteExtraFiles       *bool `json:"delete_extra_files,omitempty"`
	Verbose                *bool `json:"verbose,omitempty"`
	IgnoreCache            bool  `json:"ignore_cache"`
	CleanInstall           bool  `json:"clean_install"`
	MigrationOnly          bool  `json:"migration_only"`
	MaxConcurrentTransfers int   `json:"max_concurrent_transfers,omitempty"`
}

// FileMapping is one (source, destination-relative target) pair,
// processed after the main sync plan.
type FileMapping struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// DatabaseConfig is the root of the database half of the configuration
// document: the tunneled connection, the main database's phases, the
// per-tenant database's phases, the once-only cross-database scripts, and
// the JSON-driven seed table specs.
type DatabaseConfig struct {
	Host          string `json:"db_host,omitempty"` // default 127.0.0.1
	Port          int    `json:"db_port,omitempty"` // default 3306
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`

	Main                  MainDatabaseConfig   `json:"main"`
	TenantConfigFilesPath string               `json:"tenant_config_files_path"`
	TenantDatabase        TenantDatabaseConfig `json:"tenant_database"`
	TenantDataScripts     DataScriptsConfig    `json:"tenant_data_scripts"`
	SeedTables            []SeedTableSpec      `json:"seed_tables"`
}

// MainDatabaseConfig names the phase directories run once against the
// main database.
type MainDatabaseConfig struct {
	DBName         string `json:"db_name"`
	SetupPath      string `json:"setup_path"`
	TablesPath     string `json:"tables_path"`
	ProceduresPath string `json:"procedures_path"`
	DataPath       string `json:"data_path"`
	MigrationPath  string `json:"migration_path"`
}

// TenantDatabaseConfig names the phase directories run once per tenant.
// DBName may contain {{WEBID}}, substituted before the connection
// switches databases.
type TenantDatabaseConfig struct {
	DBName         string `json:"db_name"`
	SetupPath      string `json:"setup_path"`
	TablesPath     string `json:"tables_path"`
	ProceduresPath string `json:"procedures_path"`
	DataPath       string `json:"data_path"`
	MigrationPath  string `json:"migration_path"`
}

// DataScriptsConfig names the once-only cross-database data scripts,
// which contain their own USE statements.
type DataScriptsConfig struct {
	DataPath string `json:"data_path"`
}

// SeedTableSpec is a single JSON-to-SQL seeding rule.
type SeedTableSpec struct {
	Table                string            `json:"table"`
	Database             string            `json:"database,omitempty"` // "main" or "tenant", default main
	ConfigFilesPath      string            `json:"config_files_path"`
	ConfigFilesExtension string            `json:"config_files_extension,omitempty"` // default ".json"
	TableScriptFile      string            `json:"table_script_file"`
	BeginMark            string            `json:"begin_mark"`
	EndMark              string            `json:"end_mark"`
	CheckExistsQuery     string            `json:"check_exists_query,omitempty"`
	ArrayField           string            `json:"array_field,omitempty"`
	NestedArrayField     string            `json:"nested_array_field,omitempty"`
	Variables            []VariableBinding `json:"variables"`
}

// VariableBinding maps one SQL placeholder to a JSON path, plus optional
// default and parent-scope flag.
type VariableBinding struct {
	Placeholder string  `json:"placeholder"`
	JSONField   string  `json:"json_field"`
	FromParent  bool    `json:"from_parent,omitempty"`
	Default     *string `json:"default_value,omitempty"`
}

// Manager handles reading configuration documents.
type Manager struct{}

// Read decodes a Document from r and applies template pass 1
// ({{APPLICATION_NAME}} substitution across every string in the tree).
func (m *Manager) Read(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, &deploy.ConfigurationError{Err: fmt.Errorf("decoding configuration: %w", err)}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &deploy.ConfigurationError{Err: fmt.Errorf("decoding configuration: %w", err)}
	}

	expanded := template.ApplyToTree(generic, doc.ApplicationName)
	reEncoded, err := json.Marshal(expanded)
	if err != nil {
		return nil, &deploy.ConfigurationError{Err: fmt.Errorf("re-encoding templated configuration: %w", err)}
	}
	if err := json.Unmarshal(reEncoded, &doc); err != nil {
		return nil, &deploy.ConfigurationError{Err: fmt.Errorf("decoding templated configuration: %w", err)}
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ReadFromFile reads a Document from the specified file path.
func ReadFromFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &deploy.ConfigurationError{Err: fmt.Errorf("opening configuration file: %w", err)}
	}
	defer f.Close()

	m := &Manager{}
	doc, err := m.Read(f)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks the handful of invariants the engine depends on beyond
// "does it decode" — the external schema validator spec.md §1 names is
// responsible for the rest.
func Validate(doc *Document) error {
	if doc.AgentName != "ai-deploy" {
		return &deploy.ConfigurationError{Field: "agent_name", Err: fmt.Errorf("must equal %q, got %q", "ai-deploy", doc.AgentName)}
	}
	if doc.Options.MigrationOnly && doc.Options.CleanInstall {
		return &deploy.ConfigurationError{Err: fmt.Errorf("migration_only and clean_install are mutually exclusive")}
	}
	if doc.Source.Type != "windows_share" && doc.Source.Type != "ssh" {
		return &deploy.ConfigurationError{Field: "source.type", Err: fmt.Errorf("must be %q or %q", "windows_share", "ssh")}
	}
	if doc.Destination.Type != "windows_share" && doc.Destination.Type != "ssh" {
		return &deploy.ConfigurationError{Field: "destination.type", Err: fmt.Errorf("must be %q or %q", "windows_share", "ssh")}
	}
	return nil
}

// MaxConcurrentTransfersOrDefault returns the configured worker pool
// size, or the documented default of 20.
func (o OptionsConfig) MaxConcurrentTransfersOrDefault() int {
	if o.MaxConcurrentTransfers > 0 {
		return o.MaxConcurrentTransfers
	}
	return 20
}

// DeleteExtraFilesOrDefault returns the configured flag, defaulting to
// true when unset.
func (o OptionsConfig) DeleteExtraFilesOrDefault() bool {
	if o.DeleteExtraFiles == nil {
		return true
	}
	return *o.DeleteExtraFiles
}

// VerboseOrDefault returns the configured flag, defaulting to true when
// unset.
func (o OptionsConfig) VerboseOrDefault() bool {
	if o.Verbose == nil {
		return true
	}
	return *o.Verbose
}

// HostOrDefault returns the configured database host, defaulting to the
// loopback address (the tunnel's local forward target).
func (d DatabaseConfig) HostOrDefault() string {
	if d.Host != "" {
		return d.Host
	}
	return "127.0.0.1"
}

// PortOrDefault returns the configured database port, defaulting to 3306.
func (d DatabaseConfig) PortOrDefault() int {
	if d.Port != 0 {
		return d.Port
	}
	return 3306
}

// ConfigFilesExtensionOrDefault returns the configured seed JSON
// extension, defaulting to ".json".
func (s SeedTableSpec) ConfigFilesExtensionOrDefault() string {
	if s.ConfigFilesExtension != "" {
		return s.ConfigFilesExtension
	}
	return ".json"
}

// DatabaseScopeOrDefault returns the configured scope ("main" or
// "tenant"), defaulting to "main".
func (s SeedTableSpec) DatabaseScopeOrDefault() string {
	if s.Database != "" {
		return s.Database
	}
	return "main"
}

// SSHPortOrDefault returns the configured SSH port, defaulting to 22.
func (e EndpointConfig) SSHPortOrDefault() int {
	if e.Port != 0 {
		return e.Port
	}
	return 22
}
