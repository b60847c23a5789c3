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

// SubmissionServiceInterface defines the interface for form intake.
type SubmissionServiceInterface interface {
	Submit(ctx context.Context, req *model.SubmitFormRequest) (*model.Submission, error)
}

// SubmissionHandler handles public form submissions.
type SubmissionHandler struct {
	service   SubmissionServiceInterface
	validator *validator.Validate
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(svc SubmissionServiceInterface, v *validator.Validate) *SubmissionHandler {
	return &SubmissionHandler{service: svc, validator: v}
}

// missingRequired reports whether err is a required/notblank failure.
func missingRequired(err error) bool {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return false
	}
	for _, fe := range ve {
		if fe.Tag() == "required" || fe.Tag() == "notblank" {
			return true
		}
	}
	return false
}

// SubmitForm handles POST /api/submit-form. Any field other than the known
// ones is stored as a form answer.
func (h *SubmissionHandler) SubmitForm(c *fiber.Ctx) error {
	body := map[string]any{}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	req := model.NewSubmitFormRequest(body)
	if err := h.validator.Struct(req); err != nil {
		msg := appvalidator.Message(err)
		if missingRequired(err) {
			msg = "Missing required fields"
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": msg})
	}

	sub, err := h.service.Submit(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Missing required fields"})
		case errors.Is(err, service.ErrDuplicateSubmission):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "You have already submitted a form with this email address",
			})
		}
		logError(c, err).Str("type", req.Type).Msg("failed to submit form")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to submit form"})
	}

	logInfo(c).
		Str("submission_id", sub.ID).
		Str("type", string(sub.Type)).
		Bool("referred", sub.ReferredBy != nil).
		Msg("form submitted")

	return c.JSON(model.SubmitFormResponse{
		Success: true,
		Message: "Form submitted successfully",
		ID:      sub.ID,
	})
}
