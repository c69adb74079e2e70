// Package handlers contains the HTTP layer: entity CRUD, trash and
// restore, spreadsheet import with preview, CSV export and templates.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusops/school-api/internal/audit"
	"github.com/campusops/school-api/internal/config"
	"github.com/campusops/school-api/internal/httpx"
	"github.com/campusops/school-api/internal/store"
)

type Server struct {
	Config config.Config
	Store  *store.Store
	Audit  *audit.Logger
	Logger *slog.Logger
}

func NewServer(cfg config.Config, st *store.Store, auditLogger *audit.Logger, logger *slog.Logger) *Server {
	return &Server{Config: cfg, Store: st, Audit: auditLogger, Logger: logger}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uuidParam parses the {uuid} path segment, writing a 400 when malformed.
func uuidParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "uuid")
	uid, err := uuid.Parse(raw)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_uuid", "Malformed record identifier", nil)
		return uuid.Nil, false
	}
	return uid, true
}

func parseListParams(r *http.Request) store.ListParams {
	q := r.URL.Query()
	p := store.ListParams{
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  15,
	}
	if v := q.Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			p.Limit = n
		}
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			p.Offset = (n - 1) * p.Limit
		}
	}
	if v := q.Get("status"); v != "" {
		b := v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "active")
		p.Status = &b
	}
	p.SchoolID = idQuery(q.Get("school_id"))
	p.DepartmentID = idQuery(q.Get("department_id"))
	p.ProgramID = idQuery(q.Get("program_id"))
	return p
}

func idQuery(v string) *int64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// listEnvelope is the standard paginated collection response.
type listEnvelope struct {
	Data    any         `json:"data"`
	Total   int64       `json:"total"`
	Stats   store.Stats `json:"stats"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

func pageFromParams(p store.ListParams) int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}
