package sqlexec

import (
	"testing"

	"adeploy/internal/config"
	"adeploy/internal/deploy"
)

func sampleDB() config.DatabaseConfig {
	return config.DatabaseConfig{
		Main: config.MainDatabaseConfig{
			DBName:        "app_main",
			SetupPath:     "/sql/main/setup",
			TablesPath:    "/sql/main/tables",
			DataPath:      "/sql/main/data",
			MigrationPath: "/sql/main/migrations",
		},
		TenantDatabase: config.TenantDatabaseConfig{
			DBName:        "app_tenant_{{WEBID}}",
			SetupPath:     "/sql/tenant/setup",
			TablesPath:    "/sql/tenant/tables",
			MigrationPath: "/sql/tenant/migrations",
		},
		TenantDataScripts: config.DataScriptsConfig{
			DataPath: "/sql/cross-db",
		},
	}
}

func sampleTenants() []deploy.Tenant {
	return []deploy.Tenant{
		{WebID: "acme"},
		{WebID: "globex"},
	}
}

func TestBuildPlan_ordersMainThenPerTenantThenCrossDB(t *testing.T) {
	plan := BuildPlan(sampleDB(), sampleTenants(), false, "shop")

	var labels []string
	for _, p := range plan.Phases {
		labels = append(labels, p.Label)
	}

	want := []string{
		"main.setup", "main.tables", "main.data",
		"tenant.acme.setup", "tenant.acme.tables",
		"tenant.globex.setup", "tenant.globex.tables",
		"cross-db.data",
	}
	if len(labels) != len(want) {
		t.Fatalf("phases = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("phase %d = %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestBuildPlan_skipsEmptyDirFields(t *testing.T) {
	db := sampleDB()
	db.Main.ProceduresPath = ""
	plan := BuildPlan(db, nil, false, "shop")

	for _, p := range plan.Phases {
		if p.Label == "main.procedures" {
			t.Fatal("expected main.procedures to be skipped when ProceduresPath is empty")
		}
	}
}

func TestBuildPlan_crossDBPhaseIsOwnUseWithNoDBName(t *testing.T) {
	plan := BuildPlan(sampleDB(), nil, false, "shop")

	var found bool
	for _, p := range plan.Phases {
		if p.Label != "cross-db.data" {
			continue
		}
		found = true
		if !p.OwnUse {
			t.Error("cross-db.data phase should be OwnUse")
		}
		if p.DBName != "" {
			t.Errorf("cross-db.data phase DBName = %q, want empty", p.DBName)
		}
	}
	if !found {
		t.Fatal("expected a cross-db.data phase")
	}
}

func TestBuildPlan_migrationOnlyRestrictsToMigrationPaths(t *testing.T) {
	plan := BuildPlan(sampleDB(), sampleTenants(), true, "shop")

	want := []string{"main.migration", "tenant.acme.migration", "tenant.globex.migration"}
	if len(plan.Phases) != len(want) {
		t.Fatalf("phases = %+v, want labels %v", plan.Phases, want)
	}
	for i, p := range plan.Phases {
		if p.Label != want[i] {
			t.Errorf("phase %d label = %q, want %q", i, p.Label, want[i])
		}
	}
}

func TestBuildPlan_migrationOnlyOmitsMissingMigrationPaths(t *testing.T) {
	db := sampleDB()
	db.TenantDatabase.MigrationPath = ""
	plan := BuildPlan(db, sampleTenants(), true, "shop")

	if len(plan.Phases) != 1 || plan.Phases[0].Label != "main.migration" {
		t.Fatalf("phases = %+v, want only main.migration", plan.Phases)
	}
}

func TestPlan_DatabaseNames_distinctFirstSeenOrder(t *testing.T) {
	plan := BuildPlan(sampleDB(), sampleTenants(), false, "shop")
	names := plan.DatabaseNames()

	want := []string{"app_main", "app_tenant_acme", "app_tenant_globex"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestBuildPlan_expandsWebIDIntoTenantDBName(t *testing.T) {
	plan := BuildPlan(sampleDB(), sampleTenants(), false, "shop")

	seen := map[string]string{}
	for _, p := range plan.Phases {
		if p.PerTenant {
			seen[p.Tenant.WebID] = p.DBName
		}
	}

	if seen["acme"] != "app_tenant_acme" {
		t.Errorf("acme phase DBName = %q, want %q", seen["acme"], "app_tenant_acme")
	}
	if seen["globex"] != "app_tenant_globex" {
		t.Errorf("globex phase DBName = %q, want %q", seen["globex"], "app_tenant_globex")
	}
	if seen["acme"] == seen["globex"] {
		t.Fatal("two distinct tenants collapsed onto the same database name")
	}
}

func TestBuildPlan_expandsApplicationNameIntoMainDBName(t *testing.T) {
	db := sampleDB()
	db.Main.DBName = "{{APPLICATION_NAME}}_main"
	plan := BuildPlan(db, nil, false, "shop")

	for _, p := range plan.Phases {
		if p.Label == "main.setup" && p.DBName != "shop_main" {
			t.Errorf("main.setup DBName = %q, want %q", p.DBName, "shop_main")
		}
	}
}
