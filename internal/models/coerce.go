package models

import "strconv"

// Numeric fields in the store have been written as ints, floats or strings
// across app versions; nothing enforces a schema. These helpers normalize a
// stored value or report absence. They never fail loudly: a malformed value
// is the same as a missing one.

// AsNumber coerces a stored value to float64.
func AsNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// AsInt coerces a stored value to int, truncating fractions.
func AsInt(v interface{}) (int, bool) {
	f, ok := AsNumber(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// AsInt64 coerces a stored value to int64, truncating fractions.
func AsInt64(v interface{}) (int64, bool) {
	f, ok := AsNumber(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// AsString returns the value if it is a string.
func AsString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsBool returns the value if it is a bool.
func AsBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// AsStringList collects the string elements of a stored list, skipping
// anything else.
func AsStringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func numberField(fields map[string]interface{}, key string) *float64 {
	if f, ok := AsNumber(fields[key]); ok {
		return &f
	}
	return nil
}

func intField(fields map[string]interface{}, key string) *int {
	if i, ok := AsInt(fields[key]); ok {
		return &i
	}
	return nil
}

func int64Field(fields map[string]interface{}, key string) *int64 {
	if i, ok := AsInt64(fields[key]); ok {
		return &i
	}
	return nil
}
