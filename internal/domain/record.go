package domain

import (
	"strconv"
	"strings"
)

// Record wraps the untyped key/value map describing the transaction, claim or
// order under analysis. Fields are sector-dependent and read defensively:
// missing keys use the caller's default and coercion failures fall back to the
// default instead of failing the request.
type Record map[string]any

// Float reads a numeric field, coercing strings and integers.
func (r Record) Float(key string, def float64) float64 {
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

// Int reads an integer field, coercing floats and strings.
func (r Record) Int(key string, def int) int {
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Bool reads a boolean field. String values "true", "yes" and "1" count as true.
func (r Record) Bool(key string, def bool) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return def
}

// Str reads a string field, stringifying scalars.
func (r Record) Str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// LowerStr reads a string field lowercased, for keyword matching.
func (r Record) LowerStr(key string) string {
	return strings.ToLower(r.Str(key))
}

// StringList reads a field that may be a list of strings, a list of values,
// or a comma-separated string.
func (r Record) StringList(key string) []string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, Record{"v": item}.Str("v"))
			}
		}
		return out
	case string:
		if strings.TrimSpace(list) == "" {
			return nil
		}
		parts := strings.Split(list, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return nil
}

// Has reports whether the field is present and non-nil.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}
