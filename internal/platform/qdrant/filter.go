package qdrant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Filters use a Mongo-like subset: plain field equality, {"$eq"|"$ne"|"$in": v},
// and top-level "$and", "$or", "$not". They translate to qdrant must/should/must_not clauses.

type clauses struct {
	Must    []any
	Should  []any
	MustNot []any
}

func (c clauses) asMap() map[string]any {
	out := map[string]any{}
	if len(c.Must) > 0 {
		out["must"] = c.Must
	}
	if len(c.Should) > 0 {
		out["should"] = c.Should
	}
	if len(c.MustNot) > 0 {
		out["must_not"] = c.MustNot
	}
	return out
}

func (c *clauses) merge(o clauses) {
	c.Must = append(c.Must, o.Must...)
	c.Should = append(c.Should, o.Should...)
	c.MustNot = append(c.MustNot, o.MustNot...)
}

func filterErr(code OperationErrorCode, format string, args ...any) error {
	return opErr("filter_translate", code, fmt.Sprintf(format, args...), nil)
}

func translateFilter(filter map[string]any) (clauses, error) {
	var out clauses
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	// deterministic request bodies
	sort.Strings(keys)

	for _, raw := range keys {
		key := strings.TrimSpace(raw)
		value := filter[raw]
		switch {
		case key == "":
			continue
		case key == "$and" || key == "$or":
			subs, ok := objectList(value)
			if !ok {
				return clauses{}, filterErr(OperationErrorValidation, "operator %s expects array of objects", key)
			}
			for _, sub := range subs {
				c, err := translateFilter(sub)
				if err != nil {
					return clauses{}, err
				}
				if key == "$and" {
					out.Must = append(out.Must, c.asMap())
				} else {
					out.Should = append(out.Should, c.asMap())
				}
			}
		case key == "$not":
			sub, ok := value.(map[string]any)
			if !ok {
				return clauses{}, filterErr(OperationErrorValidation, "operator $not expects an object")
			}
			c, err := translateFilter(sub)
			if err != nil {
				return clauses{}, err
			}
			out.MustNot = append(out.MustNot, c.asMap())
		case strings.HasPrefix(key, "$"):
			return clauses{}, filterErr(OperationErrorUnsupportedFilter, "unsupported top-level filter operator %q", key)
		default:
			c, err := translateField(key, value)
			if err != nil {
				return clauses{}, err
			}
			out.merge(c)
		}
	}
	return out, nil
}

func translateField(field string, value any) (clauses, error) {
	var out clauses
	ops, isOps := value.(map[string]any)
	if !isOps {
		v, ok := scalar(value)
		if !ok {
			return clauses{}, filterErr(OperationErrorValidation, "field %q expects scalar value or operator object", field)
		}
		out.Must = append(out.Must, matchValue(field, v))
		return out, nil
	}
	if len(ops) == 0 {
		return clauses{}, filterErr(OperationErrorValidation, "field %q has empty operator map", field)
	}

	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)
	for _, op := range names {
		switch strings.ToLower(strings.TrimSpace(op)) {
		case "$eq", "$ne":
			v, ok := scalar(ops[op])
			if !ok {
				return clauses{}, filterErr(OperationErrorValidation, "operator %s for field %q expects scalar value", op, field)
			}
			if op == "$eq" {
				out.Must = append(out.Must, matchValue(field, v))
			} else {
				out.MustNot = append(out.MustNot, matchValue(field, v))
			}
		case "$in":
			vals, ok := scalarList(ops[op])
			if !ok {
				return clauses{}, filterErr(OperationErrorValidation, "operator $in for field %q expects scalar array", field)
			}
			if len(vals) == 0 {
				return clauses{}, filterErr(OperationErrorValidation, "operator $in for field %q cannot be empty", field)
			}
			out.Must = append(out.Must, map[string]any{"key": field, "match": map[string]any{"any": vals}})
		default:
			return clauses{}, filterErr(OperationErrorUnsupportedFilter, "unsupported filter operator %q for field %q", op, field)
		}
	}
	return out, nil
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}

func objectList(v any) ([]map[string]any, bool) {
	switch t := v.(type) {
	case []map[string]any:
		return t, true
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	}
	return nil, false
}

func scalarList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			s, ok := scalar(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// scalar normalizes the numeric kinds qdrant accepts in match conditions.
func scalar(v any) (any, bool) {
	switch t := v.(type) {
	case string, bool, int, int64, float64:
		return t, true
	case int32:
		return int64(t), true
	case float32:
		return float64(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil {
			return f, true
		}
	}
	return nil, false
}
