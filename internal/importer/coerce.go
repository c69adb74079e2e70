package importer

import "strings"

// ParseStatus interprets an uploader's status cell as an active flag. Absent
// cells default to active because callers substitute "active" before calling.
func ParseStatus(value any) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	switch strings.ToLower(strings.TrimSpace(stringify(value))) {
	case "1", "true", "yes", "active", "enabled":
		return true
	}
	return false
}

// ParseBool interprets yes/no style cells (projector, whiteboard, AC flags).
func ParseBool(value any) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	switch strings.ToLower(strings.TrimSpace(stringify(value))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

var classroomTypes = map[string]struct{}{
	"lecture_hall": {}, "classroom": {}, "lab": {}, "seminar": {}, "auditorium": {}, "workshop": {},
}

// NormalizeClassroomType maps free-form input onto the classroom type enum,
// defaulting to "classroom". Never fails.
func NormalizeClassroomType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, " ", "_")
	if _, ok := classroomTypes[v]; ok {
		return v
	}
	return "classroom"
}

var courseTypes = map[string]struct{}{"required": {}, "elective": {}, "core": {}}

// NormalizeCourseType defaults to "required".
func NormalizeCourseType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if _, ok := courseTypes[v]; ok {
		return v
	}
	return "required"
}

var equipmentCategories = map[string]struct{}{
	"technology": {}, "furniture": {}, "safety": {}, "accessibility": {}, "other": {},
}

// NormalizeEquipmentCategory defaults to "other".
func NormalizeEquipmentCategory(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if _, ok := equipmentCategories[v]; ok {
		return v
	}
	return "other"
}

var degreeLevels = map[string]struct{}{
	"certificate": {}, "diploma": {}, "associate": {}, "bachelor": {}, "master": {}, "doctorate": {},
}

// NormalizeDegreeLevel defaults to "bachelor".
func NormalizeDegreeLevel(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if _, ok := degreeLevels[v]; ok {
		return v
	}
	return "bachelor"
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return Row{"v": value}.String("v")
}
