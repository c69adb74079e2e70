package store

import (
	"fmt"

	"github.com/campusops/school-api/internal/importer"
)

// tableMeta describes how a logical entity kind maps onto its table:
// which columns a field-map write may touch, which column carries the
// natural key used for duplicate detection, and which column is shown
// as the record code in trash and bulk views.
type tableMeta struct {
	table      string
	naturalKey string
	codeCol    string
	columns    map[string]bool
}

var tables = map[importer.Kind]tableMeta{
	importer.KindSchool: {
		table:      "schools",
		naturalKey: "code",
		codeCol:    "code",
		columns: cols(
			"uuid", "name", "code", "description", "address", "city",
			"phone", "email", "website", "established_year", "status",
		),
	},
	importer.KindDepartment: {
		table:      "school_departments",
		naturalKey: "code",
		codeCol:    "code",
		columns: cols(
			"uuid", "school_id", "name", "code", "description",
			"head_of_department", "email", "phone", "office_location",
			"established_year", "status",
		),
	},
	importer.KindProgram: {
		table:      "school_programs",
		naturalKey: "code",
		codeCol:    "code",
		columns: cols(
			"uuid", "school_id", "department_id", "name", "code",
			"description", "degree_level", "duration_years",
			"credits_required", "tuition_fee", "max_students",
			"admission_requirements", "status",
		),
	},
	importer.KindCourse: {
		table:      "school_courses",
		naturalKey: "code",
		codeCol:    "code",
		columns: cols(
			"uuid", "department_id", "program_id", "name", "code",
			"description", "credits", "type", "semester", "year",
			"max_students", "schedule", "room", "status",
		),
	},
	importer.KindClassroom: {
		table:      "school_classrooms",
		naturalKey: "code",
		codeCol:    "code",
		columns: cols(
			"uuid", "department_id", "name", "code", "building", "floor",
			"capacity", "type", "description", "has_projector",
			"has_whiteboard", "has_ac", "is_available", "status",
		),
	},
	importer.KindEquipment: {
		table:      "school_equipment",
		naturalKey: "slug",
		codeCol:    "slug",
		columns: cols(
			"uuid", "name", "slug", "category", "icon", "description",
			"status",
		),
	},
}

func cols(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func metaFor(kind importer.Kind) (tableMeta, error) {
	meta, ok := tables[kind]
	if !ok {
		return tableMeta{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	return meta, nil
}
