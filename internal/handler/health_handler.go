package handler

import (
	"context"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a HealthHandler that pings the database and any
// extra named dependencies.
func NewHealthHandler(db Pinger, extra map[string]Pinger) *HealthHandler {
	checks := map[string]Pinger{"database": db}
	for name, p := range extra {
		if p != nil {
			checks[name] = p
		}
	}
	return &HealthHandler{checks: checks}
}

// Check pings every dependency.
// Returns 200 OK with {"status": "healthy", "checks": {...}} when all respond.
// Returns 503 Service Unavailable with {"status": "unhealthy", "error": "<name> connection failed"} otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(fiber.Map, len(names))
	for _, name := range names {
		if err := h.checks[name].Ping(c.UserContext()); err != nil {
			log.Error().Err(err).Str("dependency", name).Msg("health check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  name + " connection failed",
			})
		}
		results[name] = "ok"
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"checks": results,
	})
}
