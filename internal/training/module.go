// Package training provides the training bounded context: assessment
// scoring, per-track progress and certificate issuance.
package training

import (
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/events"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/internal/training/handler"
	"labor_pipeline_backend/internal/training/repository"
	"labor_pipeline_backend/internal/training/service"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the training bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the training module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	recorder audit.Recorder,
	cfg config.PipelineConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, recorder, cfg, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "training"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts training routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/trainings"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
