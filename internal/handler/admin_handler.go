package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/internal/service"
	appvalidator "github.com/aurorallabs/referral-portal/internal/validator"
)

// AdminServiceInterface defines the interface for administrator operations.
type AdminServiceInterface interface {
	Stats(ctx context.Context) (*model.AdminStats, error)
	Analytics(ctx context.Context) (*model.Analytics, error)
	Users(ctx context.Context) ([]model.UserSummary, error)
	Submissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error)
	UpdateSubmission(ctx context.Context, id string, req model.UpdateSubmissionRequest) (*model.Submission, error)
	DeleteSubmission(ctx context.Context, id string) error
	Claims(ctx context.Context, status model.ClaimStatus) ([]model.RewardClaim, error)
	ApproveClaim(ctx context.Context, id string) (*model.RewardClaim, error)
	RejectClaim(ctx context.Context, id string) (*model.RewardClaim, error)
	Templates(ctx context.Context) ([]model.RewardTemplate, error)
	CreateTemplate(ctx context.Context, req *model.TemplateRequest) (*model.RewardTemplate, error)
	UpdateTemplate(ctx context.Context, id string, req *model.TemplateRequest) (*model.RewardTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// PromotionServiceInterface grants the admin role.
type PromotionServiceInterface interface {
	PromoteToAdmin(ctx context.Context, email string) (*model.PromotionResult, error)
}

// AdminHandler handles the administrator API.
type AdminHandler struct {
	service   AdminServiceInterface
	promoter  PromotionServiceInterface
	validator *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc AdminServiceInterface, promoter PromotionServiceInterface, v *validator.Validate) *AdminHandler {
	return &AdminHandler{service: svc, promoter: promoter, validator: v}
}

// adminError maps service errors shared by the admin endpoints.
func adminError(c *fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	case errors.Is(err, service.ErrDuplicateSubmission):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You have already submitted a form with this email address"})
	case errors.Is(err, service.ErrSubmissionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Submission not found"})
	case errors.Is(err, service.ErrClaimNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward claim not found"})
	case errors.Is(err, service.ErrTemplateNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward template not found"})
	case errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, service.ErrInvalidStatusTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Reward claim has already been processed"})
	}
	logError(c, err).Str("action", action).Msg("admin operation failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// CreateAdmin handles POST /api/create-admin.
func (h *AdminHandler) CreateAdmin(c *fiber.Ctx) error {
	var req model.CreateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
	}
	if err := h.validator.Struct(req); err != nil {
		if missingRequired(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": appvalidator.Message(err)})
	}

	res, err := h.promoter.PromoteToAdmin(c.UserContext(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
		}
		logError(c, err).Str("email", req.Email).Msg("failed to create admin")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to create admin",
			"details": err.Error(),
		})
	}

	logInfo(c).Str("promoted_user_id", res.UserID).Msg("admin created")
	return c.JSON(res)
}

// Stats handles GET /dashboard/admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return adminError(c, err, "stats")
	}
	return c.JSON(stats)
}

// Analytics handles GET /dashboard/admin/analytics.
func (h *AdminHandler) Analytics(c *fiber.Ctx) error {
	a, err := h.service.Analytics(c.UserContext())
	if err != nil {
		return adminError(c, err, "analytics")
	}
	return c.JSON(a)
}

// Users handles GET /dashboard/admin/users.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	users, err := h.service.Users(c.UserContext())
	if err != nil {
		return adminError(c, err, "list users")
	}
	return c.JSON(fiber.Map{"users": users})
}

// Submissions handles GET /dashboard/admin/submissions?status=.
func (h *AdminHandler) Submissions(c *fiber.Ctx) error {
	subs, err := h.service.Submissions(c.UserContext(), model.SubmissionStatus(c.Query("status")))
	if err != nil {
		return adminError(c, err, "list submissions")
	}
	return c.JSON(fiber.Map{"submissions": subs})
}

// UpdateSubmission handles PATCH /dashboard/admin/submissions/:id.
func (h *AdminHandler) UpdateSubmission(c *fiber.Ctx) error {
	var req model.UpdateSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": appvalidator.Message(err)})
	}

	sub, err := h.service.UpdateSubmission(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return adminError(c, err, "update submission")
	}
	logInfo(c).Str("submission_id", sub.ID).Msg("submission updated")
	return c.JSON(sub)
}

// DeleteSubmission handles DELETE /dashboard/admin/submissions/:id.
func (h *AdminHandler) DeleteSubmission(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteSubmission(c.UserContext(), id); err != nil {
		return adminError(c, err, "delete submission")
	}
	logInfo(c).Str("submission_id", id).Msg("submission deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// Claims handles GET /dashboard/admin/claims?status=.
func (h *AdminHandler) Claims(c *fiber.Ctx) error {
	claims, err := h.service.Claims(c.UserContext(), model.ClaimStatus(c.Query("status")))
	if err != nil {
		return adminError(c, err, "list claims")
	}
	return c.JSON(fiber.Map{"claims": claims})
}

// ApproveClaim handles POST /dashboard/admin/claims/:id/approve.
func (h *AdminHandler) ApproveClaim(c *fiber.Ctx) error {
	claim, err := h.service.ApproveClaim(c.UserContext(), c.Params("id"))
	if err != nil {
		return adminError(c, err, "approve claim")
	}
	return c.JSON(claim)
}

// RejectClaim handles POST /dashboard/admin/claims/:id/reject.
func (h *AdminHandler) RejectClaim(c *fiber.Ctx) error {
	claim, err := h.service.RejectClaim(c.UserContext(), c.Params("id"))
	if err != nil {
		return adminError(c, err, "reject claim")
	}
	return c.JSON(claim)
}

// Templates handles GET /dashboard/admin/templates.
func (h *AdminHandler) Templates(c *fiber.Ctx) error {
	templates, err := h.service.Templates(c.UserContext())
	if err != nil {
		return adminError(c, err, "list templates")
	}
	return c.JSON(fiber.Map{"templates": templates})
}

// CreateTemplate handles POST /dashboard/admin/templates.
func (h *AdminHandler) CreateTemplate(c *fiber.Ctx) error {
	var req model.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": appvalidator.Message(err)})
	}

	tmpl, err := h.service.CreateTemplate(c.UserContext(), &req)
	if err != nil {
		return adminError(c, err, "create template")
	}
	logInfo(c).Str("template_id", tmpl.ID).Msg("reward template created")
	return c.Status(fiber.StatusCreated).JSON(tmpl)
}

// UpdateTemplate handles PATCH /dashboard/admin/templates/:id.
func (h *AdminHandler) UpdateTemplate(c *fiber.Ctx) error {
	var req model.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": appvalidator.Message(err)})
	}

	tmpl, err := h.service.UpdateTemplate(c.UserContext(), c.Params("id"), &req)
	if err != nil {
		return adminError(c, err, "update template")
	}
	return c.JSON(tmpl)
}

// DeleteTemplate handles DELETE /dashboard/admin/templates/:id.
func (h *AdminHandler) DeleteTemplate(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteTemplate(c.UserContext(), id); err != nil {
		return adminError(c, err, "delete template")
	}
	logInfo(c).Str("template_id", id).Msg("reward template deleted")
	return c.SendStatus(fiber.StatusNoContent)
}
