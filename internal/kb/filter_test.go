package kb

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBuildFilter_Leaf(t *testing.T) {
	built, err := BuildFilter(Eq("category", "x"))
	if err != nil {
		t.Fatalf("BuildFilter: %v", err)
	}

	comp, ok := built["category"].(map[string]any)
	if !ok {
		t.Fatalf("built[category] = %T, want map", built["category"])
	}
	if comp["$eq"] != "x" {
		t.Errorf("$eq = %v, want %q", comp["$eq"], "x")
	}
}

func TestBuildFilter_NestedTree(t *testing.T) {
	f := And(
		Eq("category", "docs"),
		Or(
			Gte("meta.pages", 10),
			In("tags", "go", "http"),
		),
	)
	built, err := BuildFilter(f)
	if err != nil {
		t.Fatalf("BuildFilter: %v", err)
	}

	data, err := json.Marshal(built)
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}

	want := `{"$and":[{"category":{"$eq":"docs"}},{"$or":[{"meta.pages":{"$gte":10}},{"tags":{"$in":["go","http"]}}]}]}`
	if string(data) != want {
		t.Errorf("filter JSON = %s, want %s", data, want)
	}
}

// Every key at every level must be either a field name or a logical
// operator; field names must never collide with operator tokens.
func TestBuildFilter_KeyShape(t *testing.T) {
	built, err := BuildFilter(Or(
		Eq("a", 1),
		And(Ne("b.c", "y"), Nin("d", "p", "q")),
	))
	if err != nil {
		t.Fatalf("BuildFilter: %v", err)
	}

	var walk func(t *testing.T, node map[string]any)
	walk = func(t *testing.T, node map[string]any) {
		for key, val := range node {
			if key == "$and" || key == "$or" {
				children, ok := val.([]map[string]any)
				if !ok {
					t.Fatalf("%s value is %T, want list of objects", key, val)
				}
				for _, child := range children {
					walk(t, child)
				}
				continue
			}
			if strings.HasPrefix(key, "$") {
				t.Errorf("field name %q collides with operator space", key)
			}
			comp, ok := val.(map[string]any)
			if !ok || len(comp) != 1 {
				t.Fatalf("field %q value = %v, want single-operator object", key, val)
			}
			for op := range comp {
				if !operatorTokens[op] {
					t.Errorf("field %q uses unknown operator %q", key, op)
				}
			}
		}
	}
	walk(t, built)
}

func TestBuildFilter_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"empty or", Or()},
		{"empty and", And()},
		{"nil child", Or(Eq("a", 1), nil)},
		{"unknown operator", Cond("a", "$regex", "x")},
		{"operator as field", Eq("$eq", 1)},
		{"empty field", Eq("", 1)},
		{"scalar for $in", Cond("a", "$in", 3)},
		{"nil root", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFilter(tt.filter)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !IsKind(err, KindValidation) {
				t.Errorf("error kind = %v, want validation: %v", err, err)
			}
		})
	}
}

func TestBuildFilter_ArrayOperators(t *testing.T) {
	for _, op := range []string{OpIn, OpNin, OpAll} {
		built, err := BuildFilter(Cond("tags", op, []any{"a", "b"}))
		if err != nil {
			t.Fatalf("BuildFilter(%s): %v", op, err)
		}
		comp := built["tags"].(map[string]any)
		if _, ok := comp[op]; !ok {
			t.Errorf("missing %s in %v", op, comp)
		}
	}
}

func TestParseFilterJSON_RoundTrip(t *testing.T) {
	raw := `{"$and":[{"category":{"$eq":"docs"}},{"$or":[{"n":{"$lt":5}},{"tags":{"$all":["a"]}}]}]}`

	f, err := ParseFilterJSON([]byte(raw))
	if err != nil {
		t.Fatalf("ParseFilterJSON: %v", err)
	}
	built, err := BuildFilter(f)
	if err != nil {
		t.Fatalf("BuildFilter: %v", err)
	}

	data, err := json.Marshal(built)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != raw {
		t.Errorf("round trip = %s, want %s", data, raw)
	}
}

func TestParseFilterJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"two keys", `{"a":{"$eq":1},"b":{"$eq":2}}`},
		{"empty junction", `{"$or":[]}`},
		{"junction not list", `{"$and":{"a":{"$eq":1}}}`},
		{"unknown logical", `{"$not":[{"a":{"$eq":1}}]}`},
		{"bad comparison", `{"a":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilterJSON([]byte(tt.raw))
			if err == nil {
				// Junction emptiness is caught at build time.
				if _, err = BuildFilter(f); err == nil {
					t.Fatal("expected error, got nil")
				}
			}
			if !IsKind(err, KindValidation) {
				t.Errorf("error kind = %v, want validation", err)
			}
		})
	}
}
