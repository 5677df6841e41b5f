// Package remittances provides the remittance and compliance alert
// bounded context.
package remittances

import (
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/events"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/internal/remittances/handler"
	"labor_pipeline_backend/internal/remittances/repository"
	"labor_pipeline_backend/internal/remittances/service"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, recorder audit.Recorder, cfg config.PipelineConfig, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, recorder, cfg, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "remittances"
}

// Service exposes the compliance scan to the scheduler.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/remittances"), ctx.Protected.Group("/remittance-alerts"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/remittances"))
}

var _ apphttp.Module = (*Module)(nil)
