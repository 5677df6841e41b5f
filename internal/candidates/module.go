// Package candidates provides the candidate master-status bounded context.
package candidates

import (
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/candidates/handler"
	"labor_pipeline_backend/internal/candidates/repository"
	"labor_pipeline_backend/internal/candidates/service"
	"labor_pipeline_backend/internal/events"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the candidates bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, guards service.GuardReader, eventBus events.Bus, recorder audit.Recorder, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), guards, eventBus, recorder, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "candidates"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterHandlers subscribes the status aggregator to tracker milestones.
func (m *Module) RegisterHandlers(bus events.Bus) {
	m.service.Subscribe(bus)
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/candidates"))
}

var _ apphttp.Module = (*Module)(nil)
