// Package handler provides the HTTP handlers of the knowledge service.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/tradementor/tradementor/internal/knowledge/biz"
	"github.com/tradementor/tradementor/internal/knowledge/prompt"
	"github.com/tradementor/tradementor/internal/model"
)

// queryTimeout bounds one query end to end, including generation.
const queryTimeout = 60 * time.Second

// streamGoneMessage is returned for any stream that cannot be served,
// whether it never existed, expired, or was already consumed.
const streamGoneMessage = "Stream not found or already consumed. Submit a new /query."

// sseDone is the terminal SSE frame.
const sseDone = "[DONE]"

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse is a standard success envelope for operations that
// return no payload.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// KnowledgeHandler handles knowledge HTTP requests.
type KnowledgeHandler struct {
	service biz.Service
	broker  biz.JobBroker
	prompts *prompt.Manager
}

// NewKnowledgeHandler creates a KnowledgeHandler.
func NewKnowledgeHandler(service biz.Service, broker biz.JobBroker, prompts *prompt.Manager) *KnowledgeHandler {
	return &KnowledgeHandler{
		service: service,
		broker:  broker,
		prompts: prompts,
	}
}

// SubmitQuery accepts a query and returns the stream URL for it.
func (h *KnowledgeHandler) SubmitQuery(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	jobID := h.broker.Submit(&req)
	c.JSON(http.StatusAccepted, model.QuerySubmitResponse{
		JobID:     jobID,
		StreamURL: "/v1/knowledge/stream/" + jobID,
	})
}

// Stream consumes a submitted job and streams the answer tokens as SSE.
func (h *KnowledgeHandler) Stream(c *gin.Context) {
	jobID := c.Param("job_id")

	req, ok := h.broker.Consume(jobID)
	if !ok {
		c.JSON(http.StatusGone, ErrorResponse{Code: 410, Message: streamGoneMessage})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	err := h.service.QueryStream(ctx, req, func(token string) error {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", token); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		logger.Errorw("query stream failed", "job_id", jobID, "error", err)
		return
	}

	fmt.Fprintf(c.Writer, "data: %s\n\n", sseDone)
	c.Writer.Flush()
}

// QuerySync answers a query synchronously with a parsed answer.
func (h *KnowledgeHandler) QuerySync(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	answer, err := h.service.Query(ctx, &req)
	if err != nil {
		logger.Errorw("sync query failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, answer)
}

// Stats reports the index, cache and counter state.
func (h *KnowledgeHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ReloadPrompt forces a prompt library reload.
func (h *KnowledgeHandler) ReloadPrompt(c *gin.Context) {
	if err := h.prompts.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "prompt library reloaded"})
}

// Healthz reports liveness.
func (h *KnowledgeHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
