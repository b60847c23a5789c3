package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aurorallabs/referral-portal/internal/live"
	"github.com/aurorallabs/referral-portal/internal/model"
)

// ActiveWindow is how recently a user must have signed in to count as active.
const ActiveWindow = 30 * 24 * time.Hour

// AdminService provides the administrator dashboard operations.
type AdminService struct {
	pool        TxBeginner
	users       UserRepositoryInterface
	submissions SubmissionRepositoryInterface
	rewards     RewardRepositoryInterface
	publisher   Publisher
	now         func() time.Time
}

// NewAdminService creates a new AdminService.
func NewAdminService(pool *pgxpool.Pool, users UserRepositoryInterface, submissions SubmissionRepositoryInterface, rewards RewardRepositoryInterface, publisher Publisher) *AdminService {
	return NewAdminServiceWithTxBeginner(pool, users, submissions, rewards, publisher)
}

// NewAdminServiceWithTxBeginner creates an AdminService with a custom TxBeginner.
// Primarily used for testing.
func NewAdminServiceWithTxBeginner(pool TxBeginner, users UserRepositoryInterface, submissions SubmissionRepositoryInterface, rewards RewardRepositoryInterface, publisher Publisher) *AdminService {
	return &AdminService{
		pool:        pool,
		users:       users,
		submissions: submissions,
		rewards:     rewards,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Stats returns the totals shown on the admin stat cards.
func (s *AdminService) Stats(ctx context.Context) (*model.AdminStats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	subs, err := s.submissions.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	pending, err := s.rewards.CountClaimsByStatus(ctx, model.ClaimStatusPending)
	if err != nil {
		return nil, fmt.Errorf("count pending claims: %w", err)
	}
	return &model.AdminStats{TotalUsers: users, TotalSubmissions: subs, PendingRewards: pending}, nil
}

// Analytics aggregates user activity and survey answers.
// Feature averages only consider submissions that rated the feature.
func (s *AdminService) Analytics(ctx context.Context) (*model.Analytics, error) {
	ctx, span := tracer.Start(ctx, "AdminService.Analytics")
	defer span.End()

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	active, err := s.users.CountActiveSince(ctx, s.now().Add(-ActiveWindow))
	if err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	subs, err := s.submissions.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	answers, err := s.submissions.ListAnswers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	byBudget := make(map[string]int, len(model.BudgetBuckets))
	for _, b := range model.BudgetBuckets {
		byBudget[b] = 0
	}
	sums := make(map[string]float64, len(model.SurveyFeatures))
	counts := make(map[string]int, len(model.SurveyFeatures))

	for _, a := range answers {
		if budget, ok := a["budget"].(string); ok {
			if _, known := byBudget[budget]; known {
				byBudget[budget]++
			}
		}
		for _, f := range model.SurveyFeatures {
			if rating, ok := numeric(a[f]); ok {
				sums[f] += rating
				counts[f]++
			}
		}
	}

	averages := make(map[string]float64, len(model.SurveyFeatures))
	for _, f := range model.SurveyFeatures {
		if counts[f] > 0 {
			averages[f] = math.Round(sums[f]/float64(counts[f])*100) / 100
		} else {
			averages[f] = 0
		}
	}

	return &model.Analytics{
		TotalUsers:           total,
		ActiveUsers:          active,
		InactiveUsers:        total - active,
		TotalSubmissions:     subs,
		SubmissionsByBudget:  byBudget,
		AverageFeatureRating: averages,
	}, nil
}

// numeric accepts ratings stored either as JSON numbers or numeric strings.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// Users returns every user, newest first, with derived reward numbers.
func (s *AdminService) Users(ctx context.Context) ([]model.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	summaries := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		e := Eligibility(u.ReferralCount, u.RewardsClaimed)
		summaries = append(summaries, model.UserSummary{
			User:           u,
			RewardsEarned:  e.RewardsEarned,
			PendingRewards: e.PendingRewards,
		})
	}
	return summaries, nil
}

// Submissions lists submissions, optionally filtered by status.
func (s *AdminService) Submissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidRequest
	}
	subs, err := s.submissions.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// UpdateSubmission edits a submission's review status or contact fields.
func (s *AdminService) UpdateSubmission(ctx context.Context, id string, req model.UpdateSubmissionRequest) (*model.Submission, error) {
	if req.Empty() {
		return nil, ErrInvalidRequest
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, ErrInvalidRequest
	}
	sub, err := s.submissions.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrSubmissionNotFound) || errors.Is(err, ErrDuplicateSubmission) {
			return nil, err
		}
		return nil, fmt.Errorf("update submission: %w", err)
	}
	return sub, nil
}

// DeleteSubmission removes a submission.
func (s *AdminService) DeleteSubmission(ctx context.Context, id string) error {
	if err := s.submissions.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}

// Claims lists claims, optionally filtered by status.
func (s *AdminService) Claims(ctx context.Context, status model.ClaimStatus) ([]model.RewardClaim, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidRequest
	}
	claims, err := s.rewards.ListClaims(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// ApproveClaim moves a pending claim to approved.
func (s *AdminService) ApproveClaim(ctx context.Context, id string) (*model.RewardClaim, error) {
	return s.processClaim(ctx, id, model.ClaimStatusApproved)
}

// RejectClaim moves a pending claim to rejected. The reward stays spent.
func (s *AdminService) RejectClaim(ctx context.Context, id string) (*model.RewardClaim, error) {
	return s.processClaim(ctx, id, model.ClaimStatusRejected)
}

func (s *AdminService) processClaim(ctx context.Context, id string, status model.ClaimStatus) (*model.RewardClaim, error) {
	ctx, span := tracer.Start(ctx, "AdminService.processClaim")
	defer span.End()
	span.SetAttributes(attribute.String("claim.id", id), attribute.String("claim.status", string(status)))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	claim, err := s.rewards.GetClaimForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrClaimNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("get claim for update: %w", err)
	}
	if claim.Status != model.ClaimStatusPending {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.rewards.SetClaimStatus(ctx, tx, id, status)
	if err != nil {
		return nil, fmt.Errorf("set claim status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim status: %w", err)
	}

	log.Info().Str("claim_id", id).Str("user_id", updated.UserID).Str("status", string(status)).Msg("reward claim processed")
	publish(ctx, s.publisher, live.ClaimsTopic(updated.UserID))
	return updated, nil
}

// Templates lists every claimable template, active or not.
func (s *AdminService) Templates(ctx context.Context) ([]model.RewardTemplate, error) {
	templates, err := s.rewards.ListTemplates(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// CreateTemplate adds a claimable template.
func (s *AdminService) CreateTemplate(ctx context.Context, req *model.TemplateRequest) (*model.RewardTemplate, error) {
	if req == nil || req.PointsRequired == nil {
		return nil, ErrInvalidRequest
	}
	tmpl := &model.RewardTemplate{
		ID:             newID(),
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: *req.PointsRequired,
		Status:         req.Status,
	}
	if err := s.rewards.CreateTemplate(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return tmpl, nil
}

// UpdateTemplate replaces a template's editable fields.
func (s *AdminService) UpdateTemplate(ctx context.Context, id string, req *model.TemplateRequest) (*model.RewardTemplate, error) {
	if req == nil || req.PointsRequired == nil {
		return nil, ErrInvalidRequest
	}
	tmpl := &model.RewardTemplate{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: *req.PointsRequired,
		Status:         req.Status,
	}
	if err := s.rewards.UpdateTemplate(ctx, tmpl); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("update template: %w", err)
	}
	return tmpl, nil
}

// DeleteTemplate removes a template. Existing claims keep their copied fields.
func (s *AdminService) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.rewards.DeleteTemplate(ctx, id); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// OverclaimedUsers returns users whose claimed rewards exceed what their referrals earned.
func (s *AdminService) OverclaimedUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListOverclaimed(ctx, ReferralsPerReward)
	if err != nil {
		return nil, fmt.Errorf("list overclaimed users: %w", err)
	}
	return users, nil
}
