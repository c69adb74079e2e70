package importer

import "testing"

func TestParseStatus(t *testing.T) {
	for _, v := range []any{"1", "true", "YES", " Active ", "enabled", true} {
		if !ParseStatus(v) {
			t.Fatalf("ParseStatus(%v) = false, want true", v)
		}
	}
	for _, v := range []any{"0", "inactive", "no", "", nil, false, "maybe"} {
		if ParseStatus(v) {
			t.Fatalf("ParseStatus(%v) = true, want false", v)
		}
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []any{"1", "Yes", "TRUE", true, int64(1)} {
		if !ParseBool(v) {
			t.Fatalf("ParseBool(%v) = false, want true", v)
		}
	}
	// "active" passes the status parser but not the flag parser.
	for _, v := range []any{"active", "enabled", "no", "", nil} {
		if ParseBool(v) {
			t.Fatalf("ParseBool(%v) = true, want false", v)
		}
	}
}

func TestNormalizeClassroomType(t *testing.T) {
	cases := map[string]string{
		"Lecture Hall": "lecture_hall",
		"  LAB  ":      "lab",
		"auditorium":   "auditorium",
		"gymnasium":    "classroom",
		"":             "classroom",
		"données":      "classroom",
	}
	for in, want := range cases {
		if got := NormalizeClassroomType(in); got != want {
			t.Fatalf("NormalizeClassroomType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCourseType(t *testing.T) {
	if got := NormalizeCourseType("Elective"); got != "elective" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeCourseType("optional"); got != "required" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeEquipmentCategory(t *testing.T) {
	if got := NormalizeEquipmentCategory(" Technology "); got != "technology" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeEquipmentCategory("gadgets"); got != "other" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeDegreeLevel(t *testing.T) {
	if got := NormalizeDegreeLevel("MASTER"); got != "master" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeDegreeLevel("phd"); got != "bachelor" {
		t.Fatalf("got %q", got)
	}
}
