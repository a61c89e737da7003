// Package jsonpath resolves a restricted path grammar against JSON response
// bodies. The grammar is deliberately closed: the expression `$` or `$.`
// addresses the whole document; otherwise an optional leading `$.` is
// stripped and the rest is split on `.` into segments, each a bare object
// field or `field[index]` with a zero-based array index. Wildcards, filters,
// slices, and recursive descent are not supported and will not be added; a
// path using them simply fails to resolve.
package jsonpath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"reqchain/internal/util"
	"reqchain/internal/vars"
)

var (
	// ErrParse reports a body that is not valid JSON.
	ErrParse = errors.New("body is not valid JSON")
	// ErrNotFound reports a path that does not resolve against the document.
	ErrNotFound = errors.New("path not found")
)

var segmentPattern = regexp.MustCompile(`^([^.\[\]]+)(?:\[(\d+)\])?$`)

// Extract resolves expr against body and returns the addressed value.
// Traversal is strictly left to right; the first segment that cannot be
// resolved (missing key, index out of bounds, or a non-container where
// traversal must continue) fails the whole extraction with ErrNotFound.
// A body that does not decode as JSON fails with ErrParse. There are no
// partial results.
func Extract(body []byte, expr string) (vars.Value, error) {
	if !gjson.ValidBytes(body) {
		return vars.Value{}, fmt.Errorf("%w: %s", ErrParse, util.Snippet(body))
	}
	current := gjson.ParseBytes(body)
	if isRoot(expr) {
		return fromResult(current), nil
	}
	for _, seg := range strings.Split(strings.TrimPrefix(expr, "$."), ".") {
		m := segmentPattern.FindStringSubmatch(seg)
		if m == nil {
			return vars.Value{}, fmt.Errorf("%w: malformed segment %q in %q", ErrNotFound, seg, expr)
		}
		name, index := m[1], m[2]

		if !current.IsObject() {
			return vars.Value{}, fmt.Errorf("%w: %q in %q: not an object", ErrNotFound, name, expr)
		}
		child, ok := current.Map()[name]
		if !ok {
			return vars.Value{}, fmt.Errorf("%w: no field %q in %q", ErrNotFound, name, expr)
		}
		current = child

		if index == "" {
			continue
		}
		if !current.IsArray() {
			return vars.Value{}, fmt.Errorf("%w: %q in %q: not an array", ErrNotFound, name, expr)
		}
		items := current.Array()
		n, err := strconv.Atoi(index)
		if err != nil || n >= len(items) {
			return vars.Value{}, fmt.Errorf("%w: index %s out of bounds for %q (len %d) in %q", ErrNotFound, index, name, len(items), expr)
		}
		current = items[n]
	}
	return fromResult(current), nil
}

// ValidatePath reports whether expr is well formed under the closed grammar.
// It checks shape only; whether the path resolves against any particular
// document is a run-time question answered by Extract.
func ValidatePath(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return errors.New("path is empty")
	}
	if isRoot(expr) {
		return nil
	}
	for _, seg := range strings.Split(strings.TrimPrefix(expr, "$."), ".") {
		if !segmentPattern.MatchString(seg) {
			return fmt.Errorf("malformed segment %q in %q", seg, expr)
		}
	}
	return nil
}

func isRoot(expr string) bool {
	return expr == "$" || expr == "$."
}

func fromResult(r gjson.Result) vars.Value {
	switch r.Type {
	case gjson.String:
		return vars.StringValue(r.Str)
	case gjson.Number:
		return vars.NumberValue(r.Num)
	case gjson.True:
		return vars.BoolValue(true)
	case gjson.False:
		return vars.BoolValue(false)
	case gjson.Null:
		return vars.StructuredValue(nil)
	default:
		return vars.StructuredValue(r.Value())
	}
}
