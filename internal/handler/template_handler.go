package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/aurorallabs/referral-portal/internal/model"
)

// CatalogServiceInterface defines the interface for the seeded reward catalog.
type CatalogServiceInterface interface {
	List(ctx context.Context) ([]model.CatalogTemplate, error)
	SeedDefaults(ctx context.Context) ([]model.CatalogTemplate, error)
}

// TemplateHandler serves the reward catalog.
type TemplateHandler struct {
	service CatalogServiceInterface
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(svc CatalogServiceInterface) *TemplateHandler {
	return &TemplateHandler{service: svc}
}

// List handles GET /api/rewards/templates.
func (h *TemplateHandler) List(c *fiber.Ctx) error {
	templates, err := h.service.List(c.UserContext())
	if err != nil {
		logError(c, err).Msg("failed to fetch reward templates")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch reward templates"})
	}
	return c.JSON(fiber.Map{"rewardTemplates": templates})
}

// Seed handles POST /api/rewards/templates.
func (h *TemplateHandler) Seed(c *fiber.Ctx) error {
	added, err := h.service.SeedDefaults(c.UserContext())
	if err != nil {
		logError(c, err).Msg("failed to create reward templates")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create reward templates"})
	}
	return c.JSON(fiber.Map{
		"message":        "Reward templates created successfully",
		"addedTemplates": added,
	})
}
