package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadTenants reads every JSON file directly under dir, sorted by
// filename, and yields one Tenant per file keyed by its required
// top-level "webid" string. dir is a path on the machine running the
// engine, not an endpoint-relative path — tenant descriptors are
// deployment inputs, not part of the synced tree.
func LoadTenants(dir string) ([]Tenant, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ConfigurationError{Field: "database.tenant_config_files_path", Err: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	tenants := make([]Tenant, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigurationError{Field: "database.tenant_config_files_path", Err: fmt.Errorf("reading %s: %w", path, err)}
		}

		var parsed map[string]any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, &ConfigurationError{Field: "database.tenant_config_files_path", Err: fmt.Errorf("decoding %s: %w", path, err)}
		}

		webID, ok := parsed["webid"].(string)
		if !ok || webID == "" {
			return nil, &ConfigurationError{Field: "database.tenant_config_files_path", Err: fmt.Errorf("%s: missing required top-level \"webid\" string", path)}
		}

		tenants = append(tenants, Tenant{WebID: webID, ConfigPath: path, Raw: parsed})
	}

	return tenants, nil
}
