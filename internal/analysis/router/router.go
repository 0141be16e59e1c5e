// Package router registers the analysis service routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/tradementor/tradementor/internal/analysis/handler"
)

// Register wires the analysis routes onto the engine.
func Register(engine *gin.Engine, h *handler.AnalysisHandler) {
	v1 := engine.Group("/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("/transactions", h.SyncTransactions)
			analysis.GET("/transactions", h.ListTransactions)
			analysis.POST("/analyze/:contract_id", h.Analyze)
			analysis.GET("/results/:contract_id", h.LatestResult)
		}
	}

	logger.Info("analysis routes registered")
}
