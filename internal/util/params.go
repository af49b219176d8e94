// Package util holds small helpers shared by backend implementations. It
// lives in internal to avoid committing to public API stability prematurely.
package util

import (
	"encoding/json"
	"fmt"
)

// ParamError reports a missing or wrongly typed keyword argument.
type ParamError struct {
	Name    string // Parameter that failed extraction
	Message string // Human-readable error message
}

// Error implements the error interface for ParamError.
func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter '%s': %s", e.Name, e.Message)
}

func missing(name string) *ParamError {
	return &ParamError{Name: name, Message: "required parameter is missing"}
}

func wrongType(name string, want string, got any) *ParamError {
	return &ParamError{Name: name, Message: fmt.Sprintf("expected %s, got %T", want, got)}
}

// StringParam extracts a required string argument.
func StringParam(params map[string]any, name string) (string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return "", missing(name)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(name, "string", v)
	}
	return s, nil
}

// OptionalStringParam extracts an optional string argument, returning def
// when absent or null.
func OptionalStringParam(params map[string]any, name, def string) (string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(name, "string", v)
	}
	return s, nil
}

// FloatParam extracts a required numeric argument. JSON numbers decode to
// float64, but int and json.Number are accepted for callers constructing
// params in Go.
func FloatParam(params map[string]any, name string) (float64, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return 0, missing(name)
	}
	return coerceFloat(name, v)
}

// OptionalIntParam extracts an optional integer argument, returning def when
// absent or null. Fractional values are rejected.
func OptionalIntParam(params map[string]any, name string, def int) (int, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	f, err := coerceFloat(name, v)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f {
		return 0, wrongType(name, "integer", v)
	}
	return n, nil
}

// OptionalBoolParam extracts an optional boolean argument.
func OptionalBoolParam(params map[string]any, name string, def bool) (bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(name, "boolean", v)
	}
	return b, nil
}

// StringSliceParam extracts a required list-of-strings argument. Decoded
// JSON arrays arrive as []any; plain []string is accepted too.
func StringSliceParam(params map[string]any, name string) ([]string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return nil, missing(name)
	}
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, len(vv))
		for i, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, wrongType(name, "array of strings", item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, wrongType(name, "array of strings", v)
	}
}

// OptionalMapParam extracts an optional object argument, returning an empty
// map when absent or null.
func OptionalMapParam(params map[string]any, name string) (map[string]any, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, wrongType(name, "object", v)
	}
	return m, nil
}

func coerceFloat(name string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, wrongType(name, "number", v)
		}
		return f, nil
	default:
		return 0, wrongType(name, "number", v)
	}
}
