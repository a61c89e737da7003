// Package template implements {{name}} placeholder substitution against a
// variable environment. The syntax is wire-visible and fixed: a name is one
// or more characters excluding '}'.
package template

import (
	"regexp"
	"strings"

	"reqchain/internal/vars"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Render replaces every {{name}} placeholder in s with the stringified value
// bound to name in env. Names are matched exactly as written. Unknown names
// are left verbatim so partially bound chains stay editable without failing
// loudly. Substitution is a single pass over s: substituted values are never
// re-scanned for further placeholders.
func Render(s string, env *vars.Environment) string {
	if s == "" || env == nil {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}")
		if val, ok := env.Get(name); ok {
			return val.String()
		}
		return match
	})
}

// Placeholders returns the distinct placeholder names in s, in first-seen
// order. Useful for auditing which variables a template depends on.
func Placeholders(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
