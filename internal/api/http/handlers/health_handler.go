package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/freshmanacadamy/Ver/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	botName  string
	version  string
	postgres *persistence.Postgres
	redis    *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(botName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{botName: botName, version: version, postgres: postgres, redis: redis}
}

// Live reports that the process is serving.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.botName,
		"version": h.version,
	})
}

// Ready fails only when a configured audit trail is unreachable. Workflow
// state is in memory, and an unreachable Redis moves update
// de-duplication in process.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	audit, auditErr := h.auditTrail(ctx)
	dedupe := fiber.Map{"backend": persistence.DedupeRedis}
	if backend, err := h.redis.DedupeBackend(ctx); err != nil {
		dedupe = fiber.Map{"backend": backend, "reason": err.Error()}
	}
	deps := fiber.Map{"audit_trail": audit, "update_dedupe": dedupe}

	if auditErr != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "audit trail unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": deps})
}

func (h *HealthHandler) auditTrail(ctx context.Context) (string, error) {
	if err := h.postgres.Ping(ctx); err != nil {
		return err.Error(), err
	}
	if !h.postgres.Enabled() {
		return "disabled", nil
	}
	return "postgres", nil
}
