package handler

import (
	"context"
	"time"

	"glauk-api/internal/domain"
	"glauk-api/internal/dto"
	"glauk-api/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	cache domain.Cache
}

func NewHealthHandler(cache domain.Cache) *HealthHandler {
	return &HealthHandler{cache: cache}
}

// Health godoc
// @Summary Health check
// @Description Pings Redis; reports 503 when it is unreachable since no job can be queued without it
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()

	if err := h.cache.Ping(ctx); err != nil {
		logger.Get().Warn("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "degraded", Redis: "down"})
	}
	return c.JSON(dto.HealthResponse{Status: "ok", Redis: "up"})
}
