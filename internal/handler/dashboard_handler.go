package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/aurorallabs/referral-portal/internal/live"
	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/internal/service"
	appvalidator "github.com/aurorallabs/referral-portal/internal/validator"
)

// AccountServiceInterface defines the account views used by the dashboard.
type AccountServiceInterface interface {
	Dashboard(ctx context.Context, uid string) (*model.DashboardOverview, error)
	Profile(ctx context.Context, uid string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, uid, name string) (*model.User, error)
}

// ReferralServiceInterface lists the submissions credited to a user.
type ReferralServiceInterface interface {
	ListReferrals(ctx context.Context, referrerID string) ([]model.Submission, error)
}

// DashboardHandler serves the signed-in user's dashboard views.
type DashboardHandler struct {
	accounts  AccountServiceInterface
	referrals ReferralServiceInterface
	rewards   RewardServiceInterface
	streams   *Streamer
	validator *validator.Validate
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(accounts AccountServiceInterface, referrals ReferralServiceInterface, rewards RewardServiceInterface, streams *Streamer, v *validator.Validate) *DashboardHandler {
	return &DashboardHandler{
		accounts:  accounts,
		referrals: referrals,
		rewards:   rewards,
		streams:   streams,
		validator: v,
	}
}

func (h *DashboardHandler) fail(c *fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, service.ErrClaimNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward claim not found"})
	case errors.Is(err, service.ErrInvalidStatusTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Only pending rewards can be withdrawn"})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	logError(c, err).Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// Overview handles GET /dashboard.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	view, err := h.accounts.Dashboard(c.UserContext(), uid)
	if err != nil {
		return h.fail(c, err, "failed to load dashboard")
	}
	return c.JSON(view)
}

// Referrals handles GET /dashboard/referrals.
func (h *DashboardHandler) Referrals(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	subs, err := h.referrals.ListReferrals(c.UserContext(), uid)
	if err != nil {
		return h.fail(c, err, "failed to list referrals")
	}
	return c.JSON(fiber.Map{"referrals": subs})
}

// ReferralsStream handles GET /dashboard/referrals/stream.
func (h *DashboardHandler) ReferralsStream(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	return h.streams.Serve(c, live.ReferralsTopic(uid), func(ctx context.Context) (any, error) {
		subs, err := h.referrals.ListReferrals(ctx, uid)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"referrals": subs}, nil
	})
}

// Rewards handles GET /dashboard/rewards.
func (h *DashboardHandler) Rewards(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	view, err := h.rewards.View(c.UserContext(), uid)
	if err != nil {
		return h.fail(c, err, "failed to load rewards view")
	}
	return c.JSON(view)
}

// RewardsStream handles GET /dashboard/rewards/stream.
func (h *DashboardHandler) RewardsStream(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	return h.streams.Serve(c, live.ClaimsTopic(uid), func(ctx context.Context) (any, error) {
		overview, err := h.rewards.Overview(ctx, uid)
		if err != nil {
			return nil, err
		}
		return overview, nil
	})
}

// WithdrawClaim handles DELETE /dashboard/rewards/:id.
func (h *DashboardHandler) WithdrawClaim(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	if err := h.rewards.WithdrawClaim(c.UserContext(), uid, id); err != nil {
		return h.fail(c, err, "failed to withdraw claim")
	}
	logInfo(c).Str("claim_id", id).Msg("reward claim withdrawn")
	return c.JSON(fiber.Map{"success": true})
}

// Settings handles GET /dashboard/settings.
func (h *DashboardHandler) Settings(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	user, err := h.accounts.Profile(c.UserContext(), uid)
	if err != nil {
		return h.fail(c, err, "failed to load settings")
	}
	return c.JSON(user)
}

// UpdateSettings handles PATCH /dashboard/settings.
func (h *DashboardHandler) UpdateSettings(c *fiber.Ctx) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}

	var req model.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": appvalidator.Message(err)})
	}

	user, err := h.accounts.UpdateDisplayName(c.UserContext(), uid, req.DisplayName)
	if err != nil {
		return h.fail(c, err, "failed to update settings")
	}
	return c.JSON(user)
}
