package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knwn/storefront/internal/interfaces/http/dto"
)

// StoragePinger reports whether durable storage is reachable
type StoragePinger interface {
	Driver() string
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness probe
type HealthHandler struct {
	BaseHandler
	storage   StoragePinger
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(storage StoragePinger) *HealthHandler {
	return &HealthHandler{storage: storage, startTime: time.Now(), timeout: 2 * time.Second}
}

// Health reports 200 when storage answers and 503 otherwise
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:  "ok",
		Storage: h.storage.Driver(),
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.storage.Ping(ctx); err != nil {
		resp.Status = "degraded"
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    resp,
			Error: &dto.ErrorInfo{
				Code:    dto.ErrCodeUnavailable,
				Message: "Storage is unreachable",
			},
		})
		return
	}
	h.Success(c, resp)
}
