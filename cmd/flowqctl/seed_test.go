package main

import (
	"testing"

	"github.com/flowqio/flowq/internal/types"
)

func TestValueFromJSON(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want types.Value
	}{
		{"nil", nil, types.Null()},
		{"whole float becomes int", float64(42), types.Int(42)},
		{"fractional float stays float", float64(3.5), types.Float(3.5)},
		{"string", "hello", types.Text("hello")},
		{"true", true, types.Int(1)},
		{"false", false, types.Int(0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := valueFromJSON(tc.in)
			if got.Kind != tc.want.Kind {
				t.Fatalf("kind = %v, want %v", got.Kind, tc.want.Kind)
			}
			switch got.Kind {
			case types.KindInt:
				if got.Int != tc.want.Int {
					t.Fatalf("int = %d, want %d", got.Int, tc.want.Int)
				}
			case types.KindFloat:
				if got.Float != tc.want.Float {
					t.Fatalf("float = %v, want %v", got.Float, tc.want.Float)
				}
			case types.KindText:
				if got.Text != tc.want.Text {
					t.Fatalf("text = %q, want %q", got.Text, tc.want.Text)
				}
			}
		})
	}
}

func TestValueFromJSONList(t *testing.T) {
	got := valueFromJSON([]interface{}{float64(1), float64(2), float64(3)})
	if got.Kind != types.KindList {
		t.Fatalf("kind = %v, want KindList", got.Kind)
	}
	if len(got.List) != 3 {
		t.Fatalf("list len = %d, want 3", len(got.List))
	}
	for i, want := range []int64{1, 2, 3} {
		if got.List[i].Kind != types.KindInt || got.List[i].Int != want {
			t.Fatalf("list[%d] = %+v, want int %d", i, got.List[i], want)
		}
	}
}

func TestRecordFromJSON(t *testing.T) {
	raw := map[string]interface{}{
		"name":  "alice",
		"score": float64(99),
		"tags":  []interface{}{"a", "b"},
	}
	rec := recordFromJSON(raw)
	if len(rec) != 3 {
		t.Fatalf("record has %d fields, want 3", len(rec))
	}
	if rec["name"].Kind != types.KindText || rec["name"].Text != "alice" {
		t.Fatalf("name field = %+v", rec["name"])
	}
	if rec["score"].Kind != types.KindInt || rec["score"].Int != 99 {
		t.Fatalf("score field = %+v", rec["score"])
	}
	if rec["tags"].Kind != types.KindList || len(rec["tags"].List) != 2 {
		t.Fatalf("tags field = %+v", rec["tags"])
	}
}
