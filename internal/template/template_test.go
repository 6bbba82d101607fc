package template

import "testing"

func TestApplyToTree(t *testing.T) {
	tree := map[string]any{
		"description": "deploying {{APPLICATION_NAME}}",
		"nested": map[string]any{
			"items": []any{"{{APPLICATION_NAME}}-main", "literal"},
		},
		"count": float64(3),
	}

	got := ApplyToTree(tree, "shopfront")
	m := got.(map[string]any)

	if m["description"] != "deploying shopfront" {
		t.Errorf("description = %v", m["description"])
	}
	nested := m["nested"].(map[string]any)
	items := nested["items"].([]any)
	if items[0] != "shopfront-main" {
		t.Errorf("items[0] = %v", items[0])
	}
	if items[1] != "literal" {
		t.Errorf("items[1] = %v", items[1])
	}
	if m["count"] != float64(3) {
		t.Errorf("count = %v", m["count"])
	}
}

func TestApplyToTree_noRecursiveExpansion(t *testing.T) {
	// appName itself contains a placeholder; it must not be re-expanded.
	got := ApplyToTree("{{APPLICATION_NAME}}", "{{APPLICATION_NAME}}-literal")
	if got != "{{APPLICATION_NAME}}-literal" {
		t.Errorf("got %v, want the substituted value left untouched", got)
	}
}

func TestExpandSQL(t *testing.T) {
	expand := ExpandSQL("shopfront")

	got := expand([]byte("CREATE DATABASE {{APPLICATION_NAME}}_{{WEBID}};"), "demo", true)
	want := "CREATE DATABASE shopfront_demo;"
	if string(got) != want {
		t.Errorf("ExpandSQL() = %q, want %q", got, want)
	}
}

func TestExpandSQL_webIDLeftAloneWhenNotPerTenant(t *testing.T) {
	expand := ExpandSQL("shopfront")

	got := expand([]byte("-- {{WEBID}} untouched for main scope"), "demo", false)
	want := "-- {{WEBID}} untouched for main scope"
	if string(got) != want {
		t.Errorf("ExpandSQL() = %q, want %q", got, want)
	}
}

func TestExpandSQL_unusedPlaceholderLeftIntact(t *testing.T) {
	expand := ExpandSQL("shopfront")

	got := expand([]byte("SELECT '{{UNKNOWN}}';"), "demo", true)
	if string(got) != "SELECT '{{UNKNOWN}}';" {
		t.Errorf("ExpandSQL() = %q", got)
	}
}
