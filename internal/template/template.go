// Package template implements the engine's two-pass placeholder
// expansion: {{APPLICATION_NAME}} across the decoded configuration tree
// once at load time, and {{APPLICATION_NAME}}/{{WEBID}} across raw SQL
// bytes at execution time. Both passes are plain, non-recursive textual
// substitution — a value containing another placeholder is never
// re-expanded.
package template

import (
	"bytes"
	"strings"
)

const (
	appNamePlaceholder = "{{APPLICATION_NAME}}"
	webIDPlaceholder   = "{{WEBID}}"
)

// ApplyToTree walks a decoded JSON value (the shape encoding/json produces
// for map[string]any / []any / string / etc.) and substitutes
// {{APPLICATION_NAME}} in every string leaf, returning a new tree of the
// same shape. Non-string leaves are returned unchanged.
func ApplyToTree(v any, appName string) any {
	switch t := v.(type) {
	case string:
		return applyToString(t, appName)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = ApplyToTree(val, appName)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ApplyToTree(val, appName)
		}
		return out
	default:
		return v
	}
}

func applyToString(s, appName string) string {
	return strings.ReplaceAll(s, appNamePlaceholder, appName)
}

// Expander expands the SQL-execution-time placeholders. It is small and
// stateless enough to be a plain function value rather than an interface
// with a single implementation, but is named and exported as a type so
// sqlexec and seed can depend on a narrow contract instead of this whole
// package.
type Expander func(sqlBytes []byte, webID string, perTenant bool) []byte

// ExpandSQL is pass 2: substitutes {{APPLICATION_NAME}} always, and
// {{WEBID}} only when perTenant is true. Unsubstituted placeholders are
// left intact — they are not errors, they simply reach the server.
func ExpandSQL(appName string) Expander {
	return func(sqlBytes []byte, webID string, perTenant bool) []byte {
		out := bytes.ReplaceAll(sqlBytes, []byte(appNamePlaceholder), []byte(appName))
		if perTenant {
			out = bytes.ReplaceAll(out, []byte(webIDPlaceholder), []byte(webID))
		}
		return out
	}
}

// ExpandName applies the same pass-2 placeholder rules to a single
// identifier string (a database name) instead of a SQL byte slice, so a
// templated db_name such as "app_{{WEBID}}" resolves per tenant before
// it is ever used in a CREATE DATABASE/USE statement.
func ExpandName(name, appName, webID string, perTenant bool) string {
	out := strings.ReplaceAll(name, appNamePlaceholder, appName)
	if perTenant {
		out = strings.ReplaceAll(out, webIDPlaceholder, webID)
	}
	return out
}
