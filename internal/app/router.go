package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/campusops/school-api/internal/audit"
	"github.com/campusops/school-api/internal/config"
	"github.com/campusops/school-api/internal/handlers"
	"github.com/campusops/school-api/internal/httpx"
	"github.com/campusops/school-api/internal/middleware"
	"github.com/campusops/school-api/internal/store"
)

// NewRouter assembles the middleware chain, validates requests against the
// OpenAPI document and mounts the API under /api.
func NewRouter(cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (http.Handler, error) {
	docPath := "openapi.yaml"
	if _, err := os.Stat(docPath); err != nil {
		return nil, fmt.Errorf("openapi document not found at %s: %w", docPath, err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		{PathPrefix: "/imports/", MaxBytes: cfg.ImportMaxFileBytes + (1 << 20)},
	}))

	api := chi.NewRouter()
	api.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			requestID := w.Header().Get("X-Request-Id")
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: "validation_error", Message: message},
				RequestID: requestID,
			})
		},
	}))

	st := store.New(pool)
	auditLogger := audit.NewLogger(pool)
	h := handlers.NewServer(cfg, st, auditLogger, logger)

	apiLimiter := middleware.NewIPRateLimiterWithMaxEntries(300, time.Minute, cfg.RateLimitMaxIPs)
	api.Use(apiLimiter.Middleware(""))

	api.Get("/health", h.GetHealth)

	api.Route("/imports", func(imports chi.Router) {
		imports.Get("/templates/{entity}.csv", h.GetImportTemplateCSV)
		imports.Post("/{entity}", h.PostImportCommit)
		imports.Post("/{entity}/preview", h.PostImportPreview)
	})
	api.Get("/exports/{entity}.csv", h.GetExportCSV)

	api.Route("/{entity}", func(entity chi.Router) {
		entity.Get("/", h.ListEntities)
		entity.Post("/", h.CreateEntity)
		entity.Post("/bulk-delete", h.BulkDeleteEntities)
		entity.Get("/trash", h.ListEntityTrash)
		entity.Route("/{uuid}", func(record chi.Router) {
			record.Get("/", h.GetEntity)
			record.Put("/", h.UpdateEntity)
			record.Delete("/", h.DeleteEntity)
			record.Post("/toggle-status", h.ToggleEntityStatus)
			record.Post("/restore", h.RestoreEntity)
			record.Delete("/force", h.ForceDeleteEntity)
		})
	})

	r.Mount("/api", api)
	return r, nil
}
