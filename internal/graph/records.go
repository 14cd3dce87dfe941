package graph

// Coercion helpers for row maps returned by the driver. Neo4j integers come
// back as int64; properties written by older clients may be float64.

// String returns the value under key as a string, or "" when absent.
func String(row map[string]interface{}, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

// Int64 returns the value under key as an int64, or 0 when absent.
func Int64(row map[string]interface{}, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Bool returns the value under key as a bool, or false when absent.
func Bool(row map[string]interface{}, key string) bool {
	if v, ok := row[key].(bool); ok {
		return v
	}
	return false
}

// Map returns the value under key as a map, or nil when absent.
func Map(row map[string]interface{}, key string) map[string]interface{} {
	if v, ok := row[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// Floats returns the value under key as a []float64, converting from the
// driver's []interface{} representation of list properties.
func Floats(row map[string]interface{}, key string) []float64 {
	raw, ok := row[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case float64:
			out = append(out, v)
		case int64:
			out = append(out, float64(v))
		}
	}
	return out
}
