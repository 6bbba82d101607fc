// Package seed turns sorted directories of JSON fixture files into INSERT
// statements, driven by a SQL template with {{PLACEHOLDER}} markers and a
// list of JSON-path bindings per placeholder.
package seed

import (
	"math"
	"strconv"
	"strings"

	"adeploy/internal/config"
)

// emissionContext is the object chain one INSERT emission is resolved
// against: levels[0] is always the parent JSON, and each subsequent
// level is one array element deeper (the outer element, then the nested
// element). innermost and oneLevelUp derive the two lookup scopes the
// binding rules distinguish.
type emissionContext struct {
	levels []any
}

func (c emissionContext) innermost() any {
	return c.levels[len(c.levels)-1]
}

// oneLevelUp is the first object a from_parent binding reads from: the
// parent itself with no array, the parent again in single-array mode, and
// the outer element (one level up from the innermost) in nested-array mode.
func (c emissionContext) oneLevelUp() any {
	idx := len(c.levels) - 2
	if idx < 0 {
		idx = 0
	}
	return c.levels[idx]
}

// resolveBinding applies spec.md §4.7 step 5: the "." pseudo-path takes
// the innermost element as-is, from_parent reads from oneLevelUp and,
// when the field is missing there, from the parent JSON itself;
// everything else reads from the innermost element. A missing field
// falls back to the binding's default, then to NULL.
func resolveBinding(b config.VariableBinding, ctx emissionContext) (value string, isNull bool) {
	if b.JSONField == "." {
		raw := ctx.innermost()
		if raw == nil {
			return defaultOrNull(b)
		}
		return stringify(raw), false
	}

	scope := ctx.innermost()
	if b.FromParent {
		scope = ctx.oneLevelUp()
	}

	raw, ok := lookupPath(scope, b.JSONField)
	if b.FromParent && (!ok || raw == nil) {
		raw, ok = lookupPath(ctx.levels[0], b.JSONField)
	}
	if !ok || raw == nil {
		return defaultOrNull(b)
	}
	return stringify(raw), false
}

func defaultOrNull(b config.VariableBinding) (string, bool) {
	if b.Default != nil {
		return *b.Default, false
	}
	return "", true
}

func lookupPath(obj any, path string) (any, bool) {
	cur := obj
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
