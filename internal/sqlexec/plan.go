package sqlexec

import (
	"fmt"

	"adeploy/internal/config"
	"adeploy/internal/deploy"
	"adeploy/internal/template"
)

// Phase is one directory of SQL files run against one database scope.
// OwnUse phases (the once-only cross-database data scripts) carry their
// own USE statements and are run without a pre-bound database.
type Phase struct {
	Label     string
	Dir       string
	DBName    string
	PerTenant bool
	Tenant    deploy.Tenant
	OwnUse    bool
}

// Plan is the ordered list of phases RunPlan executes, already filtered
// for migration_only mode at construction time.
type Plan struct {
	Phases []Phase
}

// BuildPlan derives the phase list from the database configuration and
// the discovered tenants, per spec.md §4.6's phase order. migrationOnly
// restricts the plan to migration_path directories only. appName and
// each tenant's WebID are bound into a templated db_name (e.g.
// "app_{{WEBID}}") before the phase is built, so every tenant gets its
// own CREATE DATABASE/USE target instead of colliding on the literal
// placeholder text.
func BuildPlan(db config.DatabaseConfig, tenants []deploy.Tenant, migrationOnly bool, appName string) *Plan {
	if migrationOnly {
		return buildMigrationPlan(db, tenants, appName)
	}

	var phases []Phase

	mainDBName := template.ExpandName(db.Main.DBName, appName, "", false)
	for _, d := range []struct{ label, dir string }{
		{"setup", db.Main.SetupPath},
		{"tables", db.Main.TablesPath},
		{"procedures", db.Main.ProceduresPath},
		{"data", db.Main.DataPath},
	} {
		if d.dir == "" {
			continue
		}
		phases = append(phases, Phase{Label: "main." + d.label, Dir: d.dir, DBName: mainDBName})
	}

	for _, t := range tenants {
		tenantDBName := template.ExpandName(db.TenantDatabase.DBName, appName, t.WebID, true)
		for _, d := range []struct{ label, dir string }{
			{"setup", db.TenantDatabase.SetupPath},
			{"tables", db.TenantDatabase.TablesPath},
			{"procedures", db.TenantDatabase.ProceduresPath},
			{"data", db.TenantDatabase.DataPath},
		} {
			if d.dir == "" {
				continue
			}
			phases = append(phases, Phase{
				Label:     fmt.Sprintf("tenant.%s.%s", t.WebID, d.label),
				Dir:       d.dir,
				DBName:    tenantDBName,
				PerTenant: true,
				Tenant:    t,
			})
		}
	}

	if db.TenantDataScripts.DataPath != "" {
		phases = append(phases, Phase{Label: "cross-db.data", Dir: db.TenantDataScripts.DataPath, OwnUse: true})
	}

	return &Plan{Phases: phases}
}

func buildMigrationPlan(db config.DatabaseConfig, tenants []deploy.Tenant, appName string) *Plan {
	var phases []Phase

	if db.Main.MigrationPath != "" {
		mainDBName := template.ExpandName(db.Main.DBName, appName, "", false)
		phases = append(phases, Phase{Label: "main.migration", Dir: db.Main.MigrationPath, DBName: mainDBName})
	}
	for _, t := range tenants {
		if db.TenantDatabase.MigrationPath != "" {
			tenantDBName := template.ExpandName(db.TenantDatabase.DBName, appName, t.WebID, true)
			phases = append(phases, Phase{
				Label:     fmt.Sprintf("tenant.%s.migration", t.WebID),
				Dir:       db.TenantDatabase.MigrationPath,
				DBName:    tenantDBName,
				PerTenant: true,
				Tenant:    t,
			})
		}
	}

	return &Plan{Phases: phases}
}

// DatabaseNames returns every distinct, non-empty database name the
// plan will CREATE DATABASE / USE, in first-seen order — used by
// clean_install to know exactly which databases to drop up front.
func (p *Plan) DatabaseNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, phase := range p.Phases {
		if phase.DBName == "" || seen[phase.DBName] {
			continue
		}
		seen[phase.DBName] = true
		names = append(names, phase.DBName)
	}
	return names
}
