package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type School struct {
	ID              int64     `json:"id"`
	UUID            uuid.UUID `json:"uuid"`
	Name            string    `json:"name"`
	Code            string    `json:"code"`
	Description     *string   `json:"description"`
	Address         *string   `json:"address"`
	City            *string   `json:"city"`
	Phone           *string   `json:"phone"`
	Email           *string   `json:"email"`
	Website         *string   `json:"website"`
	EstablishedYear *int64    `json:"established_year"`
	Status          bool      `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Department struct {
	ID               int64     `json:"id"`
	UUID             uuid.UUID `json:"uuid"`
	SchoolID         int64     `json:"school_id"`
	SchoolName       *string   `json:"school_name"`
	Name             string    `json:"name"`
	Code             string    `json:"code"`
	Description      *string   `json:"description"`
	HeadOfDepartment *string   `json:"head_of_department"`
	Email            *string   `json:"email"`
	Phone            *string   `json:"phone"`
	OfficeLocation   *string   `json:"office_location"`
	EstablishedYear  *int64    `json:"established_year"`
	Status           bool      `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Program struct {
	ID                    int64     `json:"id"`
	UUID                  uuid.UUID `json:"uuid"`
	SchoolID              int64     `json:"school_id"`
	DepartmentID          *int64    `json:"department_id"`
	DepartmentName        *string   `json:"department_name"`
	Name                  string    `json:"name"`
	Code                  string    `json:"code"`
	Description           *string   `json:"description"`
	DegreeLevel           string    `json:"degree_level"`
	DurationYears         *int64    `json:"duration_years"`
	CreditsRequired       *int64    `json:"credits_required"`
	TuitionFee            *float64  `json:"tuition_fee"`
	MaxStudents           *int64    `json:"max_students"`
	AdmissionRequirements *string   `json:"admission_requirements"`
	Status                bool      `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type Course struct {
	ID             int64     `json:"id"`
	UUID           uuid.UUID `json:"uuid"`
	DepartmentID   *int64    `json:"department_id"`
	DepartmentName *string   `json:"department_name"`
	ProgramID      *int64    `json:"program_id"`
	ProgramName    *string   `json:"program_name"`
	Name           string    `json:"name"`
	Code           string    `json:"code"`
	Description    *string   `json:"description"`
	Credits        *int64    `json:"credits"`
	Type           string    `json:"type"`
	Semester       *string   `json:"semester"`
	Year           *int64    `json:"year"`
	MaxStudents    *int64    `json:"max_students"`
	Schedule       *string   `json:"schedule"`
	Room           *string   `json:"room"`
	Status         bool      `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Classroom struct {
	ID             int64     `json:"id"`
	UUID           uuid.UUID `json:"uuid"`
	DepartmentID   int64     `json:"department_id"`
	DepartmentName *string   `json:"department_name"`
	Name           string    `json:"name"`
	Code           string    `json:"code"`
	Building       *string   `json:"building"`
	Floor          *int64    `json:"floor"`
	Capacity       int64     `json:"capacity"`
	Type           string    `json:"type"`
	Description    *string   `json:"description"`
	HasProjector   bool      `json:"has_projector"`
	HasWhiteboard  bool      `json:"has_whiteboard"`
	HasAC          bool      `json:"has_ac"`
	IsAvailable    bool      `json:"is_available"`
	Status         bool      `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Equipment struct {
	ID          int64     `json:"id"`
	UUID        uuid.UUID `json:"uuid"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Icon        *string   `json:"icon"`
	Description *string   `json:"description"`
	Status      bool      `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListParams narrows entity listings. Zero values mean "no filter"; a
// Limit of zero or less disables pagination (used by CSV export).
type ListParams struct {
	Search       string
	Status       *bool
	SchoolID     *int64
	DepartmentID *int64
	ProgramID    *int64
	Limit        int
	Offset       int
}

// filter accumulates WHERE conditions with numbered placeholders. Each
// expression uses $? where its argument goes; repeats bind the same arg.
type filter struct {
	where []string
	args  []any
}

func (f *filter) add(expr string, arg any) {
	f.args = append(f.args, arg)
	ph := fmt.Sprintf("$%d", len(f.args))
	f.where = append(f.where, strings.ReplaceAll(expr, "$?", ph))
}

func (f *filter) clause() string {
	if len(f.where) == 0 {
		return ""
	}
	return " AND " + strings.Join(f.where, " AND ")
}

// page appends LIMIT/OFFSET when p.Limit is positive.
func (f *filter) page(p ListParams) string {
	if p.Limit <= 0 {
		return ""
	}
	f.args = append(f.args, p.Limit, p.Offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(f.args)-1, len(f.args))
}
