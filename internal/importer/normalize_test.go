package importer

import (
	"reflect"
	"testing"
)

func TestNormalizeRowCanonicalizesKeysAndTrimsValues(t *testing.T) {
	got := NormalizeRow(map[string]any{
		"Name":               "  Mathematics  ",
		"Head of Department": "Dr. Reyes",
		"ESTABLISHED-YEAR":   "1998",
		"Floor (level)":      "2",
		"capacity":           float64(30),
	})
	want := Row{
		"name":               "Mathematics",
		"head_of_department": "Dr. Reyes",
		"established_year":   "1998",
		"floor_level":        "2",
		"capacity":           float64(30),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestNormalizeRowIsIdempotent(t *testing.T) {
	first := NormalizeRow(map[string]any{"Office Location": " Building A ", "Capacity": 30})
	second := NormalizeRow(first)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalizing twice changed the row: %#v vs %#v", first, second)
	}
}

func TestNormalizeRowDropsEmptyKeys(t *testing.T) {
	got := NormalizeRow(map[string]any{"   ": "x", "(!)": "y", "ok": "z"})
	if len(got) != 1 || got["ok"] != "z" {
		t.Fatalf("expected only the ok key, got %#v", got)
	}
}

func TestRowStringHandlesNumericCells(t *testing.T) {
	row := Row{"year": float64(2026), "credits": int64(4), "flag": true}
	if got := row.String("year"); got != "2026" {
		t.Fatalf("year: got %q", got)
	}
	if got := row.String("credits"); got != "4" {
		t.Fatalf("credits: got %q", got)
	}
	if got := row.String("missing"); got != "" {
		t.Fatalf("missing: got %q", got)
	}
}

func TestRowHasTreatsBlankStringsAsAbsent(t *testing.T) {
	row := Row{"a": "  ", "b": "x", "c": nil, "d": 0}
	if row.Has("a") {
		t.Fatal("blank string must count as absent")
	}
	if !row.Has("b") {
		t.Fatal("expected b present")
	}
	if row.Has("c") {
		t.Fatal("nil must count as absent")
	}
	if !row.Has("d") {
		t.Fatal("numeric zero is still a value")
	}
}

func TestRowIntAndFloat(t *testing.T) {
	row := Row{"a": "42", "b": float64(7.9), "c": "x", "d": "12.50"}
	if v := row.Int("a"); v == nil || *v != 42 {
		t.Fatalf("a: got %v", v)
	}
	if v := row.Int("b"); v == nil || *v != 7 {
		t.Fatalf("b: got %v", v)
	}
	if v := row.Int("c"); v != nil {
		t.Fatalf("c: expected nil, got %d", *v)
	}
	if v := row.Float("d"); v == nil || *v != 12.5 {
		t.Fatalf("d: got %v", v)
	}
}
