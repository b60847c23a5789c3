package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aurorallabs/referral-portal/internal/identity"
	"github.com/aurorallabs/referral-portal/internal/live"
	"github.com/aurorallabs/referral-portal/internal/model"
)

// RewardService provides business logic for reward claims.
type RewardService struct {
	pool      TxBeginner
	users     UserRepositoryInterface
	rewards   RewardRepositoryInterface
	idp       identity.Provider
	publisher Publisher
}

// NewRewardService creates a new RewardService. idp and publisher may be nil.
func NewRewardService(pool *pgxpool.Pool, users UserRepositoryInterface, rewards RewardRepositoryInterface, idp identity.Provider, publisher Publisher) *RewardService {
	return NewRewardServiceWithTxBeginner(pool, users, rewards, idp, publisher)
}

// NewRewardServiceWithTxBeginner creates a RewardService with a custom TxBeginner.
// Primarily used for testing.
func NewRewardServiceWithTxBeginner(pool TxBeginner, users UserRepositoryInterface, rewards RewardRepositoryInterface, idp identity.Provider, publisher Publisher) *RewardService {
	return &RewardService{
		pool:      pool,
		users:     users,
		rewards:   rewards,
		idp:       idp,
		publisher: publisher,
	}
}

// ClaimReward creates a pending claim for the user if an unclaimed reward is available.
// The user row is locked for the whole read-check-write, so concurrent claims
// cannot spend the same reward twice.
// Returns:
//   - ErrUserNotFound if the user doesn't exist
//   - ErrNoRewardsAvailable if nothing is left to claim
//   - ErrTemplateNotFound if templateID names no active template
func (s *RewardService) ClaimReward(ctx context.Context, userID, templateID string) (*model.RewardClaim, error) {
	ctx, span := tracer.Start(ctx, "RewardService.ClaimReward")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("reward.template_id", templateID))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the user row (SELECT FOR UPDATE)
	user, err := s.users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	// 2. Re-derive eligibility from the locked counters
	eligibility := Eligibility(user.ReferralCount, user.RewardsClaimed)
	if eligibility.PendingRewards <= 0 {
		return nil, ErrNoRewardsAvailable
	}

	claim := &model.RewardClaim{
		ID:     newID(),
		UserID: userID,
		Status: model.ClaimStatusPending,
	}

	// 3. Copy template fields when a specific reward was picked
	if templateID != "" && templateID != DefaultRewardID {
		tmpl, err := s.rewards.GetTemplate(ctx, tx, templateID)
		if err != nil {
			if errors.Is(err, ErrTemplateNotFound) {
				return nil, ErrTemplateNotFound
			}
			return nil, fmt.Errorf("get template: %w", err)
		}
		if tmpl.Status != model.TemplateStatusActive {
			return nil, ErrTemplateNotFound
		}
		claim.TemplateID = &tmpl.ID
		claim.Name = &tmpl.Name
		claim.Description = &tmpl.Description
		claim.PointsRequired = &tmpl.PointsRequired
	}

	// 4. Insert the claim and bump the counter
	if err := s.rewards.InsertClaim(ctx, tx, claim); err != nil {
		return nil, fmt.Errorf("insert claim: %w", err)
	}
	if err := s.users.IncrementRewardsClaimed(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("increment rewards claimed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	s.afterClaimChange(ctx, userID, user.RewardsClaimed+1)
	return claim, nil
}

// WithdrawClaim deletes the user's own pending claim and gives the reward back.
// Returns ErrClaimNotFound for missing or foreign claims and
// ErrInvalidStatusTransition once the claim has been processed.
func (s *RewardService) WithdrawClaim(ctx context.Context, userID, claimID string) error {
	ctx, span := tracer.Start(ctx, "RewardService.WithdrawClaim")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Same lock order as ClaimReward: user row first, then the claim.
	user, err := s.users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user for update: %w", err)
	}

	claim, err := s.rewards.GetClaimForUpdate(ctx, tx, claimID)
	if err != nil {
		if errors.Is(err, ErrClaimNotFound) {
			return ErrClaimNotFound
		}
		return fmt.Errorf("get claim for update: %w", err)
	}
	if claim.UserID != userID {
		return ErrClaimNotFound
	}
	if claim.Status != model.ClaimStatusPending {
		return ErrInvalidStatusTransition
	}

	if err := s.rewards.DeleteClaim(ctx, tx, claimID); err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	if err := s.users.DecrementRewardsClaimed(ctx, tx, userID); err != nil {
		return fmt.Errorf("decrement rewards claimed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit withdrawal: %w", err)
	}

	claimed := user.RewardsClaimed - 1
	if claimed < 0 {
		claimed = 0
	}
	s.afterClaimChange(ctx, userID, claimed)
	return nil
}

// Overview returns the user's eligibility and claim history, newest first.
func (s *RewardService) Overview(ctx context.Context, userID string) (*model.RewardsOverview, error) {
	ctx, span := tracer.Start(ctx, "RewardService.Overview")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	claims, err := s.rewards.ListClaimsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	return &model.RewardsOverview{
		Eligibility: Eligibility(user.ReferralCount, user.RewardsClaimed),
		Rewards:     claims,
	}, nil
}

// View assembles the rewards dashboard: overview plus the active templates.
func (s *RewardService) View(ctx context.Context, userID string) (*model.RewardsView, error) {
	overview, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}

	templates, err := s.rewards.ListTemplates(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	return &model.RewardsView{
		Eligibility: overview.Eligibility,
		Notice:      EligibilityNotice(overview.Eligibility),
		History:     overview.Rewards,
		Templates:   templates,
	}, nil
}

// ClaimHistory returns the user's claims, newest first.
func (s *RewardService) ClaimHistory(ctx context.Context, userID string) ([]model.RewardClaim, error) {
	claims, err := s.rewards.ListClaimsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// afterClaimChange mirrors the counter into the provider's custom claims and
// signals open dashboards. Both are best effort; failures are only logged.
func (s *RewardService) afterClaimChange(ctx context.Context, userID string, rewardsClaimed int) {
	syncRewardsClaimed(ctx, s.idp, userID, rewardsClaimed)
	publish(ctx, s.publisher, live.ClaimsTopic(userID))
}

func syncRewardsClaimed(ctx context.Context, idp identity.Provider, userID string, rewardsClaimed int) {
	if idp == nil {
		return
	}
	rec, err := idp.GetUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to load identity user for claim sync")
		return
	}
	claims := identity.MergeCustomClaims(rec.CustomClaims, map[string]any{"rewardsClaimed": rewardsClaimed})
	if err := idp.SetCustomClaims(ctx, userID, claims); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to sync rewardsClaimed custom claim")
	}
}

func publish(ctx context.Context, p Publisher, topic string) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to publish live update")
	}
}
