// Package args extracts typed values from tool call arguments. Arguments
// arrive as decoded JSON, so numbers are float64 and lists are []any.
package args

import "fmt"

// String returns a required string argument.
func String(arguments map[string]any, key string) (string, error) {
	v, ok := arguments[key]
	if !ok {
		return "", fmt.Errorf("%s argument is required", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s argument must be a non-empty string", key)
	}
	return s, nil
}

// OptionalString returns a string argument or the empty string.
func OptionalString(arguments map[string]any, key string) string {
	s, _ := arguments[key].(string)
	return s
}

// Bool returns a bool argument, or def when absent.
func Bool(arguments map[string]any, key string, def bool) bool {
	if v, ok := arguments[key].(bool); ok {
		return v
	}
	return def
}

// Int returns an integer argument, or def when absent.
func Int(arguments map[string]any, key string, def int) int {
	switch v := arguments[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// StringList returns an optional list-of-strings argument.
func StringList(arguments map[string]any, key string) ([]string, error) {
	v, ok := arguments[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s argument must be a list of strings", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s argument must be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// StringOrList accepts either a single string or a list of strings,
// normalizing to a list. Absent or null yields an empty list.
func StringOrList(arguments map[string]any, key string) ([]string, error) {
	v, ok := arguments[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	return StringList(arguments, key)
}

// StringMap returns a required map-of-strings argument. Non-string values
// are stringified, matching how tabular data arrives over JSON.
func StringMap(arguments map[string]any, key string) (map[string]string, error) {
	v, ok := arguments[key]
	if !ok {
		return nil, fmt.Errorf("%s argument is required", key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s argument must be an object", key)
	}
	out := make(map[string]string, len(m))
	for k, item := range m {
		switch s := item.(type) {
		case string:
			out[k] = s
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprintf("%v", s)
		}
	}
	return out, nil
}
