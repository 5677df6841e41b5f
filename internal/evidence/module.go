// Package evidence provides upload and download of supporting documents.
package evidence

import (
	"context"
	"fmt"

	"labor_pipeline_backend/internal/adapters/storage"
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/evidence/handler"
	"labor_pipeline_backend/internal/evidence/service"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/logger"
)

type Module struct {
	handler *handler.Handler
}

// NewModule connects to MinIO and makes sure the evidence bucket exists.
func NewModule(ctx context.Context, cfg config.MinIOConfig, recorder audit.Recorder, log *logger.Logger) (*Module, error) {
	store, err := storage.NewMinIOService(cfg)
	if err != nil {
		return nil, err
	}
	bucket := cfg.GetMinioBucketEvidence()
	if err := store.EnsureBucketExists(ctx, bucket); err != nil {
		return nil, fmt.Errorf("evidence bucket: %w", err)
	}
	svc := service.New(store, bucket, store.GetMaxFileSize(), recorder, log)
	return &Module{handler: handler.New(svc)}, nil
}

func (m *Module) Name() string {
	return "evidence"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/evidence"))
}

var _ apphttp.Module = (*Module)(nil)
