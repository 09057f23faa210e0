package server

import (
	"openaigateway/internal/auth"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())

	// Public routes (no auth)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metricsService.Handler()))

	s.registerAPIRoutes(s.router.Group("/"))
	s.registerAPIRoutes(s.router.Group("/v1"))
}

// registerAPIRoutes mounts the authenticated API under group. It is mounted
// both at the root and under /v1 for OpenAI SDK clients.
func (s *Server) registerAPIRoutes(group *gin.RouterGroup) {
	api := group.Group("")
	api.Use(s.auth.RequireUser())
	{
		api.GET("/models", s.listModels)
		api.GET("/models/:idx", s.listModels)
		api.POST("/chat/completions", s.chatCompletions)
		api.POST("/chat/completions/:idx", s.chatCompletions)
	}

	admin := api.Group("")
	admin.Use(auth.RequireAdmin())
	{
		admin.GET("/api/stats", s.getStatsData)
		admin.GET("/config", s.getConfig)
		admin.POST("/config/update", s.updateConfig)
		admin.GET("/urls", s.getURLs)
		admin.POST("/urls/update", s.updateURLs)
		admin.GET("/keys", s.getKeys)
		admin.POST("/keys/update", s.updateKeys)
	}
}
