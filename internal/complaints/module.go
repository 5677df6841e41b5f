// Package complaints provides the complaint handling bounded context.
package complaints

import (
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/complaints/handler"
	"labor_pipeline_backend/internal/complaints/repository"
	"labor_pipeline_backend/internal/complaints/service"
	"labor_pipeline_backend/internal/events"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the complaints bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, recorder audit.Recorder, cfg config.PipelineConfig, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, recorder, cfg, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "complaints"
}

// Service exposes the SLA engine to the scheduler.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/complaints"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/complaints"))
}

var _ apphttp.Module = (*Module)(nil)
