// Package http holds the contract between the router and the bounded
// contexts that mount routes on it.
package http

import (
	"labor_pipeline_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context with HTTP routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the groups a module may mount on. Protected requires
// a valid access token; Admin additionally requires the admin role.
type RouterContext struct {
	Engine         *gin.Engine
	V1             *gin.RouterGroup
	Protected      *gin.RouterGroup
	Admin          *gin.RouterGroup
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
}
