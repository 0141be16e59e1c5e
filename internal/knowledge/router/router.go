// Package router registers the knowledge service routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/tradementor/tradementor/internal/knowledge/handler"
	"github.com/tradementor/tradementor/pkg/middleware"
)

// Register wires middleware and routes onto the engine.
func Register(engine *gin.Engine, h *handler.KnowledgeHandler) {
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORS())

	engine.GET("/healthz", h.Healthz)

	v1 := engine.Group("/v1")
	{
		kb := v1.Group("/knowledge")
		{
			kb.POST("/query", h.SubmitQuery)
			kb.GET("/stream/:job_id", h.Stream)
			kb.POST("/query/sync", h.QuerySync)
			kb.GET("/stats", h.Stats)
			kb.POST("/prompt/reload", h.ReloadPrompt)
		}
	}

	logger.Info("knowledge routes registered")
}
