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

// RewardServiceInterface defines the interface for reward business logic.
type RewardServiceInterface interface {
	ClaimReward(ctx context.Context, userID, templateID string) (*model.RewardClaim, error)
	WithdrawClaim(ctx context.Context, userID, claimID string) error
	Overview(ctx context.Context, userID string) (*model.RewardsOverview, error)
	View(ctx context.Context, userID string) (*model.RewardsView, error)
	ClaimHistory(ctx context.Context, userID string) ([]model.RewardClaim, error)
}

// RewardHandler handles the signed-in user's reward API.
type RewardHandler struct {
	service   RewardServiceInterface
	validator *validator.Validate
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(svc RewardServiceInterface, v *validator.Validate) *RewardHandler {
	return &RewardHandler{service: svc, validator: v}
}

// GetRewards handles GET /api/user/rewards.
func (h *RewardHandler) GetRewards(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}

	overview, err := h.service.Overview(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		logError(c, err).Msg("failed to fetch rewards")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to fetch rewards",
			"message": err.Error(),
		})
	}
	return c.JSON(overview)
}

// ClaimReward handles POST /api/user/rewards. The body is optional; without
// a rewardId the default reward is claimed.
func (h *RewardHandler) ClaimReward(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}

	var req model.ClaimRewardRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := h.validator.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": appvalidator.Message(err)})
		}
	}

	claim, err := h.service.ClaimReward(c.UserContext(), uid, req.RewardID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		case errors.Is(err, service.ErrNoRewardsAvailable):
			logInfo(c).Msg("claim rejected: no rewards available")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No rewards available to claim"})
		case errors.Is(err, service.ErrTemplateNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward template not found"})
		}
		logError(c, err).Str("reward_id", req.RewardID).Msg("failed to claim reward")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to claim reward",
			"message": err.Error(),
		})
	}

	logInfo(c).Str("claim_id", claim.ID).Str("reward_id", req.RewardID).Msg("reward claimed")

	return c.JSON(model.ClaimRewardResponse{
		Success:  true,
		Message:  "Reward claimed successfully",
		RewardID: claim.ID,
	})
}
