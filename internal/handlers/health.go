package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	Environment string            `json:"environment"`
}

// Health answers 503 when any dependency check fails.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Checks:      make(map[string]string, len(h.checks)),
		Environment: h.cfg.Environment,
	}
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			resp.Checks[check.Name] = "error"
			resp.Status = "degraded"
			h.log.Error().Err(err).Str("check", check.Name).Msg("health check failed")
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
