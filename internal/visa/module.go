// Package visa provides the visa processing bounded context.
package visa

import (
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/events"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/internal/visa/handler"
	"labor_pipeline_backend/internal/visa/repository"
	"labor_pipeline_backend/internal/visa/service"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the visa bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, recorder audit.Recorder, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, recorder, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "visa"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts visa routes; the stage override lives under /admin.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/visa-processes"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/visa-processes"))
}

var _ apphttp.Module = (*Module)(nil)
