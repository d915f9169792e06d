// Package jsonx reads fields out of decoded, untrusted JSON objects with explicit defaults.
package jsonx

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// String returns the trimmed string at key, or def when missing, blank, or not a scalar.
func String(m map[string]any, key, def string) string {
	switch v := m[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return def
}

// Float accepts numbers and numeric strings.
func Float(m map[string]any, key string, def float64) float64 {
	f, ok := ToFloat(m[key])
	if !ok {
		return def
	}
	return f
}

// Int rounds numeric values. Numeric strings such as "85" or "85%" are accepted.
func Int(m map[string]any, key string, def int) int {
	f, ok := ToFloat(m[key])
	if !ok {
		return def
	}
	return int(math.Round(f))
}

func Bool(m map[string]any, key string, def bool) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

// StringList keeps non-blank scalar entries. A single string becomes a one-item list.
func StringList(m map[string]any, key string) []string {
	out := []string{}
	switch v := m[key].(type) {
	case []any:
		for _, item := range v {
			switch s := item.(type) {
			case string:
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			case float64, bool, json.Number:
				out = append(out, fmt.Sprint(s))
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ObjectList returns the object entries of the array at key and drops everything else.
func ObjectList(m map[string]any, key string) []map[string]any {
	out := []map[string]any{}
	arr, ok := m[key].([]any)
	if !ok {
		return out
	}
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func Object(m map[string]any, key string) map[string]any {
	if obj, ok := m[key].(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}

// Decode re-encodes v into out. It is used to lift a validated payload into a typed struct.
func Decode(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
