package util

import (
	"os"
	"regexp"
	"strings"
)

var winEnvPattern = regexp.MustCompile(`%([A-Za-z0-9_]+)%`)

// ExpandEnv expands both Unix-style ($VAR, ${VAR}) and Windows-style (%VAR%)
// environment variables. Unset Windows-style variables are removed.
func ExpandEnv(s string) string {
	unixExpanded := os.ExpandEnv(s)

	return winEnvPattern.ReplaceAllStringFunc(unixExpanded, func(match string) string {
		varName := match[1 : len(match)-1]
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return ""
	})
}

// Snippet returns a short prefix of a byte slice, useful for logging bodies
// without flooding the output.
func Snippet(b []byte) string {
	const maxLen = 200
	s := string(b)
	if len(s) > maxLen {
		runes := []rune(s)
		if len(runes) > maxLen {
			return string(runes[:maxLen]) + "..."
		}
	}
	return s
}

// LooksLikeJSON reports whether a string starts and ends with characters
// typical of JSON objects or arrays. Heuristic only, it does not validate
// the structure.
func LooksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
}
