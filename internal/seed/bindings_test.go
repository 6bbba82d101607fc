package seed

import (
	"testing"

	"adeploy/internal/config"
)

func strPtr(s string) *string { return &s }

func TestResolveBinding_innermostField(t *testing.T) {
	ctx := emissionContext{levels: []any{
		map[string]any{"name": "acme"},
		map[string]any{"name": "widget", "price": 9.5},
	}}
	b := config.VariableBinding{JSONField: "price"}

	value, isNull := resolveBinding(b, ctx)
	if isNull || value != "9.5" {
		t.Errorf("resolveBinding() = (%q, %v), want (\"9.5\", false)", value, isNull)
	}
}

func TestResolveBinding_fromParentInNestedMode(t *testing.T) {
	ctx := emissionContext{levels: []any{
		map[string]any{"company": "acme"},
		map[string]any{"region": "west"},
		map[string]any{"city": "reno"},
	}}
	b := config.VariableBinding{JSONField: "region", FromParent: true}

	value, isNull := resolveBinding(b, ctx)
	if isNull || value != "west" {
		t.Errorf("resolveBinding() = (%q, %v), want (\"west\", false) — from_parent should read one level up from innermost", value, isNull)
	}
}

func TestResolveBinding_fromParentInSingleArrayMode(t *testing.T) {
	ctx := emissionContext{levels: []any{
		map[string]any{"company": "acme"},
		map[string]any{"region": "west"},
	}}
	b := config.VariableBinding{JSONField: "company", FromParent: true}

	value, isNull := resolveBinding(b, ctx)
	if isNull || value != "acme" {
		t.Errorf("resolveBinding() = (%q, %v), want (\"acme\", false)", value, isNull)
	}
}

func TestResolveBinding_dotPseudoPathUsesInnermostAsIs(t *testing.T) {
	ctx := emissionContext{levels: []any{
		map[string]any{"tags": []any{"a", "b"}},
		"blue",
	}}
	b := config.VariableBinding{JSONField: "."}

	value, isNull := resolveBinding(b, ctx)
	if isNull || value != "blue" {
		t.Errorf("resolveBinding() = (%q, %v), want (\"blue\", false)", value, isNull)
	}
}

func TestResolveBinding_missingFieldFallsBackToDefault(t *testing.T) {
	ctx := emissionContext{levels: []any{map[string]any{}}}
	b := config.VariableBinding{JSONField: "missing", Default: strPtr("fallback")}

	value, isNull := resolveBinding(b, ctx)
	if isNull || value != "fallback" {
		t.Errorf("resolveBinding() = (%q, %v), want (\"fallback\", false)", value, isNull)
	}
}

func TestResolveBinding_missingFieldNoDefaultIsNull(t *testing.T) {
	ctx := emissionContext{levels: []any{map[string]any{}}}
	b := config.VariableBinding{JSONField: "missing"}

	_, isNull := resolveBinding(b, ctx)
	if !isNull {
		t.Error("resolveBinding() isNull = false, want true")
	}
}

func TestResolveBinding_dottedPathTraversal(t *testing.T) {
	ctx := emissionContext{levels: []any{
		map[string]any{"address": map[string]any{"city": "reno"}},
	}}
	b := config.VariableBinding{JSONField: "address.city"}

	value, isNull := resolveBinding(b, ctx)
	if isNull || value != "reno" {
		t.Errorf("resolveBinding() = (%q, %v), want (\"reno\", false)", value, isNull)
	}
}
