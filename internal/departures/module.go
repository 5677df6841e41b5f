// Package departures provides the departure readiness bounded context.
package departures

import (
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/departures/handler"
	"labor_pipeline_backend/internal/departures/repository"
	"labor_pipeline_backend/internal/departures/service"
	"labor_pipeline_backend/internal/events"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the departures bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, visas service.VisaReader, eventBus events.Bus, recorder audit.Recorder, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), visas, eventBus, recorder, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "departures"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/departures"))
}

var _ apphttp.Module = (*Module)(nil)
