package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secretsconfig/pkg/model"
	"github.com/Checker-Finance/secretsconfig/pkg/smconfig"
)

// ConfigProvider is the part of smconfig.Provider the HTTP surface needs.
type ConfigProvider interface {
	Snapshot() *smconfig.Snapshot
	ForceReload(ctx context.Context) error
}

// ConfigHandler serves key listings and manual reloads.
type ConfigHandler struct {
	logger        *zap.Logger
	provider      ConfigProvider
	reloadTimeout time.Duration
}

// NewConfigHandler creates a ConfigHandler. A zero reloadTimeout means 30s.
func NewConfigHandler(logger *zap.Logger, provider ConfigProvider, reloadTimeout time.Duration) *ConfigHandler {
	if reloadTimeout <= 0 {
		reloadTimeout = 30 * time.Second
	}
	return &ConfigHandler{
		logger:        logger,
		provider:      provider,
		reloadTimeout: reloadTimeout,
	}
}

// ListKeys returns the names of the currently published keys.
func (h *ConfigHandler) ListKeys(c *fiber.Ctx) error {
	snap := h.provider.Snapshot()
	if snap == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "configuration not loaded"})
	}
	keys := snap.Keys()
	return c.JSON(model.KeysResponse{
		Count:    len(keys),
		Keys:     keys,
		LoadedAt: snap.CreatedAt(),
	})
}

// Reload forces an immediate fetch. Store failures are reported as 502.
func (h *ConfigHandler) Reload(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.reloadTimeout)
	defer cancel()

	before := h.provider.Snapshot()
	if err := h.provider.ForceReload(ctx); err != nil {
		h.logger.Error("api.reload_failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	snap := h.provider.Snapshot()
	return c.JSON(fiber.Map{
		"changed":   snap != before,
		"key_count": snap.Len(),
		"loaded_at": snap.CreatedAt(),
	})
}
