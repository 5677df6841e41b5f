package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/platform/httpkit"
	"labor_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"https://ops.example.com"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return "router-secret" }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { httpkit.OK(c, gin.H{"pong": true}) })
	ctx.Admin.POST("/scan", func(c *gin.Context) { httpkit.OK(c, gin.H{"scanned": true}) })
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Nop(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   uuid.NewString(),
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("router-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func do(engine *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsDatabase(t *testing.T) {
	if rec := do(newEngine(nil), http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(newEngine(downDB{}), http.MethodGet, "/api/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine := newEngine(nil)
	if rec := do(engine, http.MethodGet, "/api/v1/ping", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec := do(engine, http.MethodGet, "/api/v1/ping", token(t, "officer"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	engine := newEngine(nil)
	if rec := do(engine, http.MethodPost, "/api/v1/admin/scan", token(t, "officer")); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := do(engine, http.MethodPost, "/api/v1/admin/scan", token(t, httpkit.RoleAdmin)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
