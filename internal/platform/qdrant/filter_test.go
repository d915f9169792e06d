package qdrant

import (
	"errors"
	"testing"
)

func TestTranslateFilterFieldsAndIn(t *testing.T) {
	got, err := translateFilter(map[string]any{
		"subject": "Science",
		"grade":   map[string]any{"$in": []string{"8", "9"}},
		"chapter": map[string]any{"$ne": "Appendix"},
	})
	if err != nil {
		t.Fatalf("translateFilter: %v", err)
	}
	if len(got.Must) != 2 || len(got.MustNot) != 1 {
		t.Fatalf("clause counts: must=%d must_not=%d", len(got.Must), len(got.MustNot))
	}
	grade := findConditionByKey(got.Must, "grade")
	if grade == nil {
		t.Fatalf("missing grade condition")
	}
	anyVals, _ := grade["match"].(map[string]any)["any"].([]any)
	if len(anyVals) != 2 {
		t.Fatalf("grade any: got=%v", grade["match"])
	}
	subject := findConditionByKey(got.Must, "subject")
	if subject == nil || subject["match"].(map[string]any)["value"] != "Science" {
		t.Fatalf("subject condition: got=%v", subject)
	}
}

func TestTranslateFilterLogicalOperators(t *testing.T) {
	got, err := translateFilter(map[string]any{
		"$or": []any{
			map[string]any{"curriculum": "ICSE"},
			map[string]any{"curriculum": "ISC"},
		},
		"$not": map[string]any{"subject": "History"},
	})
	if err != nil {
		t.Fatalf("translateFilter: %v", err)
	}
	if len(got.Should) != 2 || len(got.MustNot) != 1 {
		t.Fatalf("clause counts: should=%d must_not=%d", len(got.Should), len(got.MustNot))
	}
}

func TestTranslateFilterErrors(t *testing.T) {
	cases := []struct {
		name   string
		filter map[string]any
		code   OperationErrorCode
	}{
		{"unsupported field op", map[string]any{"grade": map[string]any{"$gt": 8}}, OperationErrorUnsupportedFilter},
		{"unsupported top-level", map[string]any{"$nor": []any{}}, OperationErrorUnsupportedFilter},
		{"empty in", map[string]any{"grade": map[string]any{"$in": []any{}}}, OperationErrorValidation},
		{"non-scalar", map[string]any{"grade": []any{1}}, OperationErrorValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := translateFilter(tc.filter)
			var oe *OperationError
			if !errors.As(err, &oe) {
				t.Fatalf("expected OperationError, got=%v", err)
			}
			if oe.Code != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, oe.Code)
			}
		})
	}
}

func findConditionByKey(conditions []any, key string) map[string]any {
	for _, c := range conditions {
		m, ok := c.(map[string]any)
		if ok && m["key"] == key {
			return m
		}
	}
	return nil
}
